package main

import "github.com/atifafzal786/grepper/cmd/grepper"

func main() { grepper.Execute() }
