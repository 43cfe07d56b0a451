package main

func main() {
	panic("binaries may panic")
}
