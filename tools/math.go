package tools

import (
	"context"
	"fmt"
	"math"

	"github.com/luoxifan/agentgraph/types"
)

// RegisterMathTools adds the arithmetic tools to the registry. Each tool
// takes a "numbers" argument holding the operands in order.
func RegisterMathTools(r *Registry) error {
	mathTools := []Tool{
		{
			Name:        "add",
			Description: "Add numbers together",
			Tags:        []string{"math", "arithmetic"},
			Func:        addTool,
		},
		{
			Name:        "subtract",
			Description: "Subtract numbers sequentially from the first",
			Tags:        []string{"math", "arithmetic"},
			Func:        subtractTool,
		},
		{
			Name:        "multiply",
			Description: "Multiply numbers together",
			Tags:        []string{"math", "arithmetic"},
			Func:        multiplyTool,
		},
		{
			Name:        "divide",
			Description: "Divide the first number by the rest sequentially",
			Tags:        []string{"math", "arithmetic"},
			Func:        divideTool,
		},
		{
			Name:        "power",
			Description: "Raise base to the given exponent",
			Tags:        []string{"math"},
			Func:        powerTool,
		},
		{
			Name:        "sqrt",
			Description: "Square root of a non-negative number",
			Tags:        []string{"math"},
			Func:        sqrtTool,
		},
	}
	for _, tool := range mathTools {
		if err := r.Register(tool); err != nil {
			return err
		}
	}
	return nil
}

func addTool(ctx context.Context, args map[string]any) (any, error) {
	numbers, err := numbersArg(args, 1)
	if err != nil {
		return nil, err
	}
	sum := 0.0
	for _, n := range numbers {
		sum += n
	}
	return sum, nil
}

func subtractTool(ctx context.Context, args map[string]any) (any, error) {
	numbers, err := numbersArg(args, 2)
	if err != nil {
		return nil, err
	}
	result := numbers[0]
	for _, n := range numbers[1:] {
		result -= n
	}
	return result, nil
}

func multiplyTool(ctx context.Context, args map[string]any) (any, error) {
	numbers, err := numbersArg(args, 1)
	if err != nil {
		return nil, err
	}
	product := 1.0
	for _, n := range numbers {
		product *= n
	}
	return product, nil
}

func divideTool(ctx context.Context, args map[string]any) (any, error) {
	numbers, err := numbersArg(args, 2)
	if err != nil {
		return nil, err
	}
	result := numbers[0]
	for _, n := range numbers[1:] {
		if n == 0 {
			return nil, types.NewError(types.ErrToolValidation, "division by zero")
		}
		result /= n
	}
	return result, nil
}

func powerTool(ctx context.Context, args map[string]any) (any, error) {
	base, err := floatArg(args, "base")
	if err != nil {
		return nil, err
	}
	exponent, err := floatArg(args, "exponent")
	if err != nil {
		return nil, err
	}
	return math.Pow(base, exponent), nil
}

func sqrtTool(ctx context.Context, args map[string]any) (any, error) {
	number, err := floatArg(args, "number")
	if err != nil {
		return nil, err
	}
	if number < 0 {
		return nil, types.NewError(types.ErrToolValidation, "square root of negative number")
	}
	return math.Sqrt(number), nil
}

// numbersArg extracts the "numbers" operand list, requiring at least min
// entries. JSON decoding hands numbers over as float64; native ints are
// accepted too.
func numbersArg(args map[string]any, min int) ([]float64, error) {
	raw, ok := args["numbers"]
	if !ok {
		return nil, types.NewError(types.ErrToolValidation, `missing required argument "numbers"`)
	}
	list, ok := raw.([]any)
	if !ok {
		if typed, isTyped := raw.([]float64); isTyped {
			if len(typed) < min {
				return nil, types.NewError(types.ErrToolValidation, fmt.Sprintf("need at least %d numbers", min))
			}
			return typed, nil
		}
		return nil, types.NewError(types.ErrToolValidation, `"numbers" must be a list`)
	}
	numbers := make([]float64, 0, len(list))
	for _, item := range list {
		n, ok := toFloat(item)
		if !ok {
			return nil, types.NewError(types.ErrToolValidation, fmt.Sprintf("not a number: %v", item))
		}
		numbers = append(numbers, n)
	}
	if len(numbers) < min {
		return nil, types.NewError(types.ErrToolValidation, fmt.Sprintf("need at least %d numbers", min))
	}
	return numbers, nil
}

func floatArg(args map[string]any, key string) (float64, error) {
	raw, ok := args[key]
	if !ok {
		return 0, types.NewError(types.ErrToolValidation, fmt.Sprintf("missing required argument %q", key))
	}
	n, ok := toFloat(raw)
	if !ok {
		return 0, types.NewError(types.ErrToolValidation, fmt.Sprintf("argument %q is not a number", key))
	}
	return n, nil
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
