package main

import (
	_ "vodpack/internal/command/lookup"
	_ "vodpack/internal/command/migrate"
	"vodpack/internal/command/root"
	_ "vodpack/internal/command/run"
	_ "vodpack/internal/command/status"
	_ "vodpack/internal/command/submit"
	_ "vodpack/internal/command/worker"
)

func main() {
	root.Execute()
}
