// Package main provides a command-line tool for recovering the files packed
// inside PyInstaller-frozen executables.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/frozentools/pyextract/pkg/carchive"
	"github.com/frozentools/pyextract/pkg/extract"
	"github.com/frozentools/pyextract/pkg/hostfile"
	"github.com/frozentools/pyextract/pkg/sysinfo"
)

var (
	listOnly  bool
	outputDir string
	workers   int
	only      string
	verbose   bool
)

func init() {
	flag.BoolVar(&listOnly, "list", false, "List archive entries without extracting")
	flag.StringVar(&outputDir, "out", "unpacked", "Output directory for extracted files")
	flag.IntVar(&workers, "workers", 0, "Extraction workers (0 = one per physical core)")
	flag.StringVar(&only, "only", "", "Comma-separated entry names to extract")
	flag.BoolVar(&verbose, "verbose", false, "Print cookie and layout details")
}

func main() {
	flag.Parse()

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	if err := validateFlags(); err != nil {
		flag.Usage()
		return err
	}
	path := flag.Arg(0)

	src, err := hostfile.Open(path)
	if err != nil {
		return err
	}
	defer src.Close()

	fmt.Printf("[+] Processing %s\n", path)

	arch, err := carchive.Open(src)
	if err != nil {
		return err
	}

	cookie := arch.Cookie()
	major, minor := cookie.PythonMajorMinor()
	fmt.Printf("[+] PyInstaller cookie revision: %s\n", cookie.Revision)
	fmt.Printf("[+] Python version: %d.%d\n", major, minor)
	if verbose {
		printDetail(arch, src)
	}
	for _, rec := range arch.Skipped() {
		fmt.Printf("[!] Damaged directory record at offset %d: %s\n", rec.Offset, rec.Reason)
	}

	if listOnly {
		return runList(arch)
	}
	return runExtract(arch, src)
}

func validateFlags() error {
	if flag.NArg() != 1 {
		return fmt.Errorf("expected exactly one executable path")
	}
	if !listOnly && outputDir == "" {
		return fmt.Errorf("output directory is required")
	}
	return nil
}

func printDetail(arch *carchive.Archive, src *hostfile.File) {
	cookie := arch.Cookie()
	layout := arch.Layout()

	if cookie.PythonLib != "" {
		fmt.Printf("[*] Python library: %s\n", cookie.PythonLib)
	}
	fmt.Printf("[*] Cookie at offset %d, package length %d bytes\n", arch.CookiePos(), cookie.PackageLength)
	fmt.Printf("[*] Overlay at offset %d, %d bytes\n", layout.OverlayPos, layout.OverlaySize)
	fmt.Printf("[*] Table of contents at offset %d, %d bytes\n", layout.TOCPos, layout.TOCLen)
	fmt.Printf("[*] Physical cores: %d\n", sysinfo.PhysicalCores())
	if src.Mapped() {
		fmt.Println("[*] Source is memory-mapped")
	}
}

func runList(arch *carchive.Archive) error {
	entries := arch.Entries()

	var total uint64
	for _, e := range entries {
		fmt.Printf("%-10s %10s  %s\n", e.Kind, humanize.Bytes(uint64(e.UncompressedSize)), e.Name)
		total += uint64(e.UncompressedSize)
	}
	fmt.Printf("[+] %d entries, %s uncompressed\n", len(entries), humanize.Bytes(total))
	return nil
}

func runExtract(arch *carchive.Archive, src *hostfile.File) error {
	entries := arch.Entries()
	fmt.Printf("[+] Found %d entries in archive\n", len(entries))

	opts := []extract.Option{
		extract.WithWorkers(workers),
		extract.WithProgress(printProgress),
	}
	if only != "" {
		opts = append(opts, extract.WithOnly(splitNames(only)))
	}

	start := time.Now()
	sum, err := extract.Extract(src, entries, outputDir, opts...)
	if err != nil {
		return err
	}

	fmt.Printf("[*] Extraction completed in %.2f seconds.\n", time.Since(start).Seconds())
	if sum.Skipped > 0 {
		fmt.Printf("[!] %d entries could not be recovered\n", sum.Skipped)
	}
	fmt.Printf("[+] Recovered %d of %d entries to %s\n", sum.Recovered, len(sum.Results), outputDir)

	if sum.Recovered == 0 {
		return fmt.Errorf("no entries could be recovered")
	}
	return nil
}

func printProgress(res extract.Result, done, total int) {
	if res.Err != nil {
		fmt.Printf("[!] Skipped %s: %v\n", res.Entry.Name, res.Err)
		return
	}
	if verbose {
		fmt.Printf("[+] Extracted: %s (%s) [%d/%d]\n",
			res.Path, humanize.Bytes(uint64(res.Size)), done, total)
	} else {
		fmt.Printf("[+] Extracted: %s (%d bytes)\n", res.Path, res.Size)
	}
}

func splitNames(s string) []string {
	parts := strings.Split(s, ",")
	names := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			names = append(names, p)
		}
	}
	return names
}
