// Command ntfsundelete scans a live NTFS volume's USN change journal for
// deleted files, fetches their MFT file records, and recovers their
// content straight off the volume's clusters.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/ntfsundelete/pkg/bridge"
)

func main() {
	if len(os.Args) < 2 {
		showHelp()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "scan":
		runScan(os.Args[2:])
	case "record":
		runRecord(os.Args[2:])
	case "recover":
		runRecover(os.Args[2:])
	case "-h", "-help", "--help", "help":
		showHelp()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		showHelp()
		os.Exit(1)
	}
}

func showHelp() {
	fmt.Println("ntfsundelete - USN-journal-based NTFS undelete tool")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ntfsundelete scan -drive C")
	fmt.Println("  ntfsundelete record -drive C -fref 123456")
	fmt.Println("  ntfsundelete recover -drive C -fref 123456 -out recovered.bin")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  scan     enumerate deleted files via the USN change journal")
	fmt.Println("  record   fetch and print the MFT record for a file reference number")
	fmt.Println("  recover  recover a deleted file's bytes straight off its data runs")
}

func setupCancellationHandler() chan os.Signal {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt)
	return sigCh
}

func runScan(args []string) {
	fs := flag.NewFlagSet("scan", flag.ExitOnError)
	drive := fs.String("drive", "", "drive letter to scan, e.g. C")
	jsonOut := fs.Bool("json", false, "emit JSON instead of a table")
	fs.Parse(args)

	if *drive == "" {
		fmt.Fprintln(os.Stderr, "scan: -drive is required")
		os.Exit(1)
	}

	done := make(chan struct{})
	var items []bridge.ScanResultItem
	var scanErr error

	bridge.Scan(*drive, func(err error, result interface{}) {
		defer close(done)
		if err != nil {
			scanErr = err
			return
		}
		items = result.([]bridge.ScanResultItem)
	})

	sigCh := setupCancellationHandler()
	select {
	case <-done:
	case <-sigCh:
		fmt.Fprintln(os.Stderr, "\nscan: interrupted")
		os.Exit(1)
	}

	if scanErr != nil {
		fmt.Fprintf(os.Stderr, "scan: %v\n", scanErr)
		os.Exit(1)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(items)
		return
	}

	fmt.Printf("%-20s %-12s %-12s %-6s %s\n", "NAME", "FRN", "PARENT", "DIR", "PATH")
	for _, it := range items {
		fmt.Printf("%-20s %-12s %-12s %-6t %s\n", it.Name, it.FileReferenceNumber, it.ParentReferenceNumber, it.IsDirectory, it.Path)
	}
	fmt.Printf("\n%d deleted file(s) found\n", len(items))
}

func runRecord(args []string) {
	fs := flag.NewFlagSet("record", flag.ExitOnError)
	drive := fs.String("drive", "", "drive letter, e.g. C")
	fref := fs.String("fref", "", "file reference number (decimal)")
	fs.Parse(args)

	if *drive == "" || *fref == "" {
		fmt.Fprintln(os.Stderr, "record: -drive and -fref are required")
		os.Exit(1)
	}

	done := make(chan struct{})
	var record bridge.FileRecordShape
	var recordErr error

	bridge.GetFileRecord(*drive, *fref, func(err error, result interface{}) {
		defer close(done)
		if err != nil {
			recordErr = err
			return
		}
		record = result.(bridge.FileRecordShape)
	})
	<-done

	if recordErr != nil {
		fmt.Fprintf(os.Stderr, "record: %v\n", recordErr)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(record)
}

func runRecover(args []string) {
	fs := flag.NewFlagSet("recover", flag.ExitOnError)
	drive := fs.String("drive", "", "drive letter, e.g. C")
	fref := fs.String("fref", "", "file reference number (decimal)")
	out := fs.String("out", "", "output file path")
	fs.Parse(args)

	if *drive == "" || *fref == "" || *out == "" {
		fmt.Fprintln(os.Stderr, "recover: -drive, -fref and -out are required")
		os.Exit(1)
	}

	recordDone := make(chan struct{})
	var record bridge.FileRecordShape
	var recordErr error
	bridge.GetFileRecord(*drive, *fref, func(err error, result interface{}) {
		defer close(recordDone)
		if err != nil {
			recordErr = err
			return
		}
		record = result.(bridge.FileRecordShape)
	})
	<-recordDone
	if recordErr != nil {
		fmt.Fprintf(os.Stderr, "recover: %v\n", recordErr)
		os.Exit(1)
	}

	var runs []bridge.RunArg
	var dataSize string
	for _, attr := range record.Attributes {
		if attr.TypeName == "Data" && attr.Name == "" {
			dataSize = attr.DataSize
			for _, r := range attr.Runs {
				runs = append(runs, bridge.RunArg{VCN: r.VCN, LCN: r.LCN, Length: r.Length, Sparse: r.Sparse})
			}
			break
		}
	}
	if dataSize == "" {
		fmt.Fprintln(os.Stderr, "recover: no unnamed $DATA attribute found on this record")
		os.Exit(1)
	}

	recoverDone := make(chan struct{})
	var recoverErr error
	bridge.RecoverDataRuns(*drive, runs, record.ClusterSize, dataSize, *out, func(err error, result interface{}) {
		defer close(recoverDone)
		recoverErr = err
	})
	<-recoverDone

	if recoverErr != nil {
		fmt.Fprintf(os.Stderr, "recover: %v\n", recoverErr)
		os.Exit(1)
	}

	fmt.Printf("recovered %s bytes to %s\n", dataSize, *out)
}
