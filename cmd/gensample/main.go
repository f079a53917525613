// Command gensample writes a synthetic transfer ledger CSV for demos
// and testing.
package main

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"
	"time"

	"github.com/alecthomas/kong"
)

var cli struct {
	Out     string `default:"sample_transactions.csv" help:"Output CSV path."`
	Records int    `default:"50000" help:"Number of rows to generate."`
	Seed    int64  `default:"0" help:"Random seed (0 uses current time)."`
}

var (
	accounts   = []string{"A001", "A002", "A003", "A004", "A005"}
	senders    = []string{"John Doe", "Jane Smith", "Alice Johnson", "Bob Brown", "Charlie Davis"}
	recipients = []string{"XYZ Corp", "ABC Inc", "123 Services", "Tech Solutions", "Global Traders"}

	// Recurring relationships so the graph shows strong edges
	biasedPairs = [][2]string{
		{"John Doe", "XYZ Corp"},
		{"Jane Smith", "ABC Inc"},
		{"Alice Johnson", "Tech Solutions"},
		{"Bob Brown", "Global Traders"},
		{"Charlie Davis", "123 Services"},
	}
)

func main() {
	ctx := kong.Parse(&cli)
	ctx.FatalIfErrorf(run())
}

func run() error {
	seed := cli.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	f, err := os.Create(cli.Out)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Date", "From Account", "From Sender", "To Account", "To Recipient", "Amount in Euro"}); err != nil {
		return err
	}

	start := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < cli.Records; i++ {
		date := start.AddDate(0, 0, rng.Intn(366))

		var fromSender, toRecipient string
		if rng.Float64() < 0.3 {
			pair := biasedPairs[rng.Intn(len(biasedPairs))]
			fromSender, toRecipient = pair[0], pair[1]
		} else {
			fromSender = senders[rng.Intn(len(senders))]
			toRecipient = recipients[rng.Intn(len(recipients))]
		}

		fromAccount := accounts[rng.Intn(len(accounts))]
		toAccount := accounts[rng.Intn(len(accounts))]
		if rng.Float64() < 0.1 {
			toAccount = fromAccount
		}

		amount := 100 + rng.Float64()*9900
		row := []string{
			date.Format("2006-01-02"),
			fromAccount,
			fromSender,
			toAccount,
			toRecipient,
			strconv.FormatFloat(amount, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}

	fmt.Printf("Wrote %d rows to %s\n", cli.Records, cli.Out)
	return nil
}
