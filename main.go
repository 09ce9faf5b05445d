// Public domain.

package main

import "github.com/soniakeys/mtljoin/internal/joinprog"

func main() {
	joinprog.Main()
}
