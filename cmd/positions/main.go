package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"TradePulse/internal/positions"
)

func main() {
	input := flag.String("input", "", "Trading212 transaction export (CSV)")
	output := flag.String("output", "open_positions.csv", "output CSV path")
	flag.Parse()

	if *input == "" {
		log.Fatal("-input is required")
	}

	in, err := os.Open(*input)
	if err != nil {
		log.Fatalf("open input: %v", err)
	}
	defer in.Close()

	open, err := positions.FromTrading212(in)
	if err != nil {
		log.Fatalf("parse statement: %v", err)
	}

	fmt.Printf("%d open positions\n", len(open))
	for _, p := range open {
		fmt.Printf("%-10s %12.6f shares @ $%.2f\n", p.Ticker, p.Shares, p.LastPrice)
	}

	out, err := os.Create(*output)
	if err != nil {
		log.Fatalf("create output: %v", err)
	}
	defer out.Close()

	if err := positions.WriteCSV(out, open); err != nil {
		log.Fatalf("write output: %v", err)
	}
	log.Printf("saved to %s", *output)
}
