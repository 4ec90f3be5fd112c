package engine

// The built-in heuristics self-register on import.
import (
	_ "github.com/perfkit/gridtune/internal/optimization/annealing"
	_ "github.com/perfkit/gridtune/internal/optimization/genetic"
	_ "github.com/perfkit/gridtune/internal/optimization/gridsearch"
	_ "github.com/perfkit/gridtune/internal/optimization/surrogate"
)
