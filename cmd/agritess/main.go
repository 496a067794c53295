package main

import (
	"github.com/UTokyo-FieldPhenomics-Lab/AgriTesseract/cmd/agritess/cmd"
)

func main() {
	cmd.Execute()
}
