// Command oacolor is a demonstration CLI for the color and txbuilder
// packages: it can recursively color an existing transaction's outputs, or
// assemble an unsigned issuance transaction, from flat files on disk. It
// never signs or broadcasts anything.
package main

import (
	"bytes"
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	flags "github.com/jessevdk/go-flags"
	"github.com/pkt-cash/pktd/btcutil/er"
	"github.com/pkt-cash/pktd/chaincfg/chainhash"
	"github.com/pkt-cash/pktd/pktlog/log"
	"github.com/pkt-cash/pktd/wire"

	"github.com/OpenAssets/openassets/color"
	"github.com/OpenAssets/openassets/txbuilder"
)

// options holds the flags common to every subcommand. Verbose is parsed but
// not read anywhere, so it does not change the log level.
type options struct {
	Verbose bool `short:"v" long:"verbose" description:"verbose flag; does not change the log level"`
}

var opts options

// fileFetcher resolves ancestor transactions from a directory of raw
// hex-encoded transactions, one file per transaction, named <txid>.hex. It
// is the simplest possible color.TransactionFetcher: real deployments would
// fetch from a node or an indexer instead.
type fileFetcher struct {
	dir string
}

func (f fileFetcher) FetchTransaction(_ context.Context, hash chainhash.Hash) (*wire.MsgTx, er.R) {
	path := filepath.Join(f.dir, hash.String()+".hex")
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, color.ErrTransactionNotFound.New(path+": "+err.Error(), nil)
	}
	return decodeTx(string(raw))
}

func decodeTx(hexStr string) (*wire.MsgTx, er.R) {
	b, err := hex.DecodeString(strings.TrimSpace(hexStr))
	if err != nil {
		return nil, er.Errorf("decoding transaction hex: %s", err)
	}
	tx := wire.NewMsgTx(1)
	if derr := tx.Deserialize(bytes.NewReader(b)); derr != nil {
		return nil, derr
	}
	return tx, nil
}

// colorCmd recursively colors every output of a single transaction.
type colorCmd struct {
	TxHex       string `long:"tx" required:"true" description:"hex-encoded raw transaction to color"`
	AncestorDir string `long:"ancestors" required:"true" description:"directory of hex-encoded ancestor transactions named <txid>.hex"`
}

func (c *colorCmd) Execute(args []string) error {
	tx, err := decodeTx(c.TxHex)
	if err != nil {
		return err
	}
	eng := color.NewEngine(fileFetcher{dir: c.AncestorDir}, color.NewMemoryCache())
	outputs, diag, err := eng.ColorTransaction(context.Background(), tx)
	if err != nil {
		return err
	}
	for _, d := range diag {
		log.Debugf("diagnostic: %s", d)
	}
	return printJSON(outputs)
}

// issueCmd builds an unsigned issuance transaction and prints it as hex.
type issueCmd struct {
	UnspentFile    string `long:"unspent" required:"true" description:"JSON file listing candidate SpendableOutputs"`
	IssuanceScript string `long:"issuance-script" required:"true" description:"hex pubkey script the new asset id is bound to"`
	ToScript       string `long:"to-script" required:"true" description:"hex pubkey script receiving the issued units"`
	ChangeScript   string `long:"change-script" description:"hex pubkey script receiving bitcoin change"`
	Amount         uint64 `long:"amount" required:"true" description:"units of the new asset to issue"`
	Fees           int64  `long:"fees" default:"0" description:"satoshis reserved for the miner fee"`
	DustLimit      int64  `long:"dust-limit" default:"600" description:"minimum satoshi value of a non-marker output; smaller change is folded into the fee"`
	Metadata       string `long:"metadata" description:"hex-encoded OP_RETURN metadata to attach to the marker"`
}

func (c *issueCmd) Execute(args []string) error {
	unspent, err := loadUnspent(c.UnspentFile)
	if err != nil {
		return err
	}
	issuanceScript, derr := hex.DecodeString(c.IssuanceScript)
	if derr != nil {
		return fmt.Errorf("decoding issuance-script: %w", derr)
	}
	toScript, derr := hex.DecodeString(c.ToScript)
	if derr != nil {
		return fmt.Errorf("decoding to-script: %w", derr)
	}
	var changeScript []byte
	if c.ChangeScript != "" {
		if changeScript, derr = hex.DecodeString(c.ChangeScript); derr != nil {
			return fmt.Errorf("decoding change-script: %w", derr)
		}
	}
	var metadata []byte
	if c.Metadata != "" {
		if metadata, derr = hex.DecodeString(c.Metadata); derr != nil {
			return fmt.Errorf("decoding metadata: %w", derr)
		}
	}

	b := txbuilder.NewBuilder(c.DustLimit)
	tx, err := b.Issue(txbuilder.IssuanceParams{
		UnspentOutputs: unspent,
		IssuanceScript: issuanceScript,
		ToScript:       toScript,
		ChangeScript:   changeScript,
		Amount:         c.Amount,
	}, metadata, c.Fees)
	if err != nil {
		return err
	}
	log.Infof("built issuance transaction %s with %d inputs and %d outputs",
		tx.TxHash(), len(tx.TxIn), len(tx.TxOut))
	return printTxHex(tx)
}

// spendableJSON is the on-disk JSON shape of a single candidate input: the
// outpoint plus the script, value, asset id and quantity of
// color.ColoredOutput. Category and Metadata are not read; entries with an
// asset id are loaded with Category Issuance.
type spendableJSON struct {
	TxID     string `json:"txid"`
	Index    uint32 `json:"index"`
	Script   string `json:"script"`
	Value    int64  `json:"value"`
	AssetID  string `json:"asset_id,omitempty"`
	Quantity uint64 `json:"quantity,omitempty"`
}

func loadUnspent(path string) ([]txbuilder.SpendableOutput, er.R) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, er.Errorf("reading %s: %s", path, err)
	}
	var entries []spendableJSON
	if jerr := json.Unmarshal(raw, &entries); jerr != nil {
		return nil, er.Errorf("parsing %s: %s", path, jerr)
	}
	out := make([]txbuilder.SpendableOutput, 0, len(entries))
	for _, e := range entries {
		h, herr := chainhash.NewHashFromStr(e.TxID)
		if herr != nil {
			return nil, er.Errorf("parsing txid %q: %s", e.TxID, herr)
		}
		script, serr := hex.DecodeString(e.Script)
		if serr != nil {
			return nil, er.Errorf("parsing script for %s:%d: %s", e.TxID, e.Index, serr)
		}
		co := color.ColoredOutput{Script: script, Value: e.Value}
		if e.AssetID != "" {
			idBytes, ierr := hex.DecodeString(e.AssetID)
			if ierr != nil {
				return nil, er.Errorf("parsing asset_id for %s:%d: %s", e.TxID, e.Index, ierr)
			}
			var id color.AssetID
			copy(id[:], idBytes)
			co.AssetID = &id
			co.Quantity = e.Quantity
			co.Category = color.Issuance
		}
		out = append(out, txbuilder.SpendableOutput{
			Outpoint: wire.OutPoint{Hash: *h, Index: e.Index},
			Out:      co,
		})
	}
	return out, nil
}

func printJSON(v interface{}) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func printTxHex(tx *wire.MsgTx) error {
	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return err
	}
	fmt.Println(hex.EncodeToString(buf.Bytes()))
	return nil
}

func main() {
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.AddCommand("color", "color a transaction",
		"Recursively color every output of a transaction, fetching ancestors from a directory of hex dumps.",
		&colorCmd{}); err != nil {
		log.Errorf("registering color command: %s", err)
		os.Exit(1)
	}
	if _, err := parser.AddCommand("issue", "build an issuance transaction",
		"Build and print an unsigned Open Assets issuance transaction.",
		&issueCmd{}); err != nil {
		log.Errorf("registering issue command: %s", err)
		os.Exit(1)
	}

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		log.Errorf("%s", err)
		os.Exit(1)
	}
}
