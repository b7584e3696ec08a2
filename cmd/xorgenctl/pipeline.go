package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/RowanDark/xorgen/internal/cipher"
)

func runPipeline(args []string) int {
	cfg, ok := loadConfig()
	if !ok {
		return 1
	}
	fs := flag.NewFlagSet("pipeline", flag.ContinueOnError)
	fs.SetOutput(os.Stderr)
	ops := fs.String("ops", "", "comma separated operation names")
	recipeName := fs.String("recipe", "", "run a saved recipe instead of -ops")
	var params stringList
	fs.Var(&params, "param", "operation parameter as key=value (repeatable, applies to every step)")
	in := fs.String("in", stdioPath, "input file ('-' for stdin)")
	out := fs.String("out", stdioPath, "output file ('-' for stdout)")
	reverse := fs.Bool("reverse", false, "run the inverse pipeline")
	list := fs.Bool("list", false, "list registered operations and exit")
	listType := fs.String("type", "", "with -list, only show operations of this type")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if *list {
		listed := cipher.ListOperations()
		if *listType != "" {
			opType, err := cipher.ParseOperationType(*listType)
			if err != nil {
				fmt.Fprintln(os.Stderr, err)
				return 2
			}
			listed = cipher.ListOperationsByType(opType)
		}
		for _, op := range listed {
			_, reversible := op.Reverse()
			fmt.Printf("%-16s %-10s reversible=%t  %s\n", op.Name(), op.Type(), reversible, op.Description())
		}
		return 0
	}

	var pipeline *cipher.Pipeline
	switch {
	case *recipeName != "" && *ops != "":
		fmt.Fprintln(os.Stderr, "-recipe and -ops are mutually exclusive")
		return 2
	case *recipeName != "":
		rm := cipher.NewRecipeManager(cfg.RecipesPath())
		if err := rm.LoadRecipes(); err != nil {
			fmt.Fprintf(os.Stderr, "load recipes: %v\n", err)
			return 1
		}
		recipe, exists := rm.GetRecipe(*recipeName)
		if !exists {
			fmt.Fprintf(os.Stderr, "recipe %q not found\n", *recipeName)
			return 1
		}
		p := recipe.Pipeline
		pipeline = &p
	default:
		p, err := buildPipeline(*ops, params, *reverse)
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			return 2
		}
		pipeline = p
	}

	if *reverse {
		reversed, err := pipeline.Reverse()
		if err != nil {
			fmt.Fprintf(os.Stderr, "reverse pipeline: %v\n", err)
			return 2
		}
		pipeline = reversed
	}

	input, err := readInput(*in)
	if err != nil {
		fmt.Fprintf(os.Stderr, "read input: %v\n", err)
		return 1
	}
	output, err := pipeline.Execute(context.Background(), input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "pipeline: %v\n", err)
		return 1
	}
	if err := writeOutput(*out, output, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "write output: %v\n", err)
		return 1
	}
	return 0
}

// buildPipeline assembles a pipeline from comma separated operation names
// sharing one parameter set.
func buildPipeline(ops string, params []string, reversible bool) (*cipher.Pipeline, error) {
	names := splitList(ops)
	if len(names) == 0 {
		return nil, errors.New("-ops is required")
	}
	parsed, err := cipher.ParseParams(params)
	if err != nil {
		return nil, err
	}
	pipeline := &cipher.Pipeline{Reversible: reversible}
	for _, name := range names {
		if _, ok := cipher.GetOperation(name); !ok {
			return nil, fmt.Errorf("unknown operation %q (available: %s)", name, strings.Join(operationNames(), ", "))
		}
		pipeline.Operations = append(pipeline.Operations, cipher.OperationConfig{Name: name, Parameters: parsed})
	}
	return pipeline, nil
}

func operationNames() []string {
	ops := cipher.ListOperations()
	names := make([]string, len(ops))
	for i, op := range ops {
		names[i] = op.Name()
	}
	return names
}
