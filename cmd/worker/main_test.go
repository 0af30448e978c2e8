package main

import (
	"testing"

	_ "github.com/panelsync/panelsync/internal/testing/guard"
)

func TestMainReturnsInTestMode(t *testing.T) {
	main()
}
