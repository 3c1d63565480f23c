package ingest

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/warp/payments-engine/engine"
)

// WriteSnapshot renders accounts as the output record set:
//
//	client,available,held,total,locked
//	1,100.0000,0.0000,100.0000,false
//
// Decimals always carry exactly four fractional digits; locked is
// true/false. Rows arrive already sorted by client id.
func WriteSnapshot(w io.Writer, accounts []engine.Account) error {
	cw := csv.NewWriter(w)

	if err := cw.Write([]string{"client", "available", "held", "total", "locked"}); err != nil {
		return err
	}
	for _, acct := range accounts {
		row := []string{
			strconv.FormatUint(uint64(acct.Client), 10),
			acct.Available.StringFixed(4),
			acct.Held.StringFixed(4),
			acct.Total().StringFixed(4),
			strconv.FormatBool(acct.Locked),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}
