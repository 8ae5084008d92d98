// Command agentgraph is the command-line interface to the flow engine: an
// interactive chat loop over an agent flow, tool inspection and execution,
// and persisted run management.
package main

func main() {
	Execute()
}
