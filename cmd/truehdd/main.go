/*
NAME
  main.go

DESCRIPTION
  main.go is the truehdd CLI entrypoint (SPEC_FULL.md §5): a `decode`
  subcommand driving Extractor -> Parser -> Decoder -> truehdio writer,
  and an `info` subcommand reporting stream configuration without
  decoding. Grounded on cmd/rv/main.go's flag.FlagSet-per-subcommand
  structure and its lumberjack/logging wiring.

LICENSE
  Copyright (C) 2024 the Australian Ocean Lab (AusOcean). All Rights Reserved.

  The Software and all intellectual property rights associated
  therewith, including but not limited to copyrights, trademarks,
  patents, and trade secrets, are and will remain the exclusive
  property of the Australian Ocean Lab (AusOcean).
*/
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/truehdd/truehdd/internal/truehdlog"
	"github.com/truehdd/truehdd/truehd"
	"github.com/truehdd/truehdd/truehd/truehddec"
	"github.com/truehdd/truehdd/truehd/truehdio"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "decode":
		err = runDecode(os.Args[2:])
	case "info":
		err = runInfo(os.Args[2:])
	case "-h", "--help", "help":
		usage()
		return
	default:
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintln(os.Stderr, "truehdd:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: truehdd <decode|info> [flags] <path|->")
}

// globalFlags holds the flags common to both subcommands, per
// SPEC_FULL.md §5's "Global flags" list.
type globalFlags struct {
	logLevel  string
	logFormat string
	strict    bool
	progress  bool
}

func (g *globalFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&g.logLevel, "loglevel", "info", "log verbosity: error, warning, info, debug")
	fs.StringVar(&g.logFormat, "log-format", "text", "log output format: text or json")
	fs.BoolVar(&g.strict, "strict", false, "fail on the first soft-conformance issue instead of logging it")
	fs.BoolVar(&g.progress, "progress", true, "report decode progress to stderr")
}

func (g *globalFlags) logger() truehdlog.Logger {
	lvl := truehdlog.Info
	switch strings.ToLower(g.logLevel) {
	case "error":
		lvl = truehdlog.Error
	case "warning", "warn":
		lvl = truehdlog.Warning
	case "debug":
		lvl = truehdlog.Debug
	}
	format := truehdlog.FormatText
	if strings.ToLower(g.logFormat) == "json" {
		format = truehdlog.FormatJSON
	}
	return truehdlog.New(truehdlog.Config{Level: lvl, Format: format})
}

func (g *globalFlags) failLevel() truehddec.FailLevel {
	if g.strict {
		return truehddec.FailWarn
	}
	return truehddec.FailError
}

func runDecode(args []string) error {
	fs := flag.NewFlagSet("decode", flag.ExitOnError)
	var gf globalFlags
	gf.register(fs)

	presentation := fs.Int("presentation", 0, "presentation index to decode: 0=stereo, 1=5.1, 2=7.1, 3=16ch")
	format := fs.String("format", "w64", "output sample container: pcm, w64, or caf")
	bedConform := fs.Bool("bed-conform", false, "collapse bed instances to the first 16 channels in the DAMF sidecar")
	warpMode := fs.String("warp-mode", "normal", "DAMF sidecar warp mode: normal, warping, ProLogicIIx, LoRo")
	noEstimateProgress := fs.Bool("no-estimate-progress", false, "disable input-size-based progress estimation")
	outputPath := fs.String("output-path", "", "output file path; defaults to the input basename with the format's extension")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("decode: missing input path")
	}
	inputPath := fs.Arg(0)
	log := gf.logger()
	if *noEstimateProgress {
		gf.progress = false
	}

	in, size, err := openInput(inputPath)
	if err != nil {
		return errors.Wrap(err, "could not open input")
	}
	defer in.Close()

	outPath := *outputPath
	if outPath == "" {
		outPath = defaultOutputPath(inputPath, *format)
	}
	outFile, err := os.Create(outPath)
	if err != nil {
		return errors.Wrap(err, "could not create output")
	}
	defer outFile.Close()

	extractor := truehd.NewExtractor()
	parser := truehddec.NewParser()
	parser.SetFailLevel(gf.failLevel())
	parser.SetLogger(truehdlog.Tracef(log))
	var required [truehddec.MaxPresentations]bool
	required[*presentation] = true
	parser.SetRequiredPresentations(required)

	decoder := truehddec.NewDecoder()

	var writer truehdio.SampleWriter
	var oamd []truehddec.ObjectAudioMetadataPayload
	samplesDecoded := 0
	bytesRead := int64(0)

	buf := make([]byte, 64*1024)
	for {
		n, readErr := in.Read(buf)
		if n > 0 {
			bytesRead += int64(n)
			extractor.PushBytes(buf[:n])
		}
		eof := readErr == io.EOF
		if readErr != nil && !eof {
			return errors.Wrap(readErr, "reading input")
		}

		for {
			frame, err := extractor.NextFrame()
			if errors.Is(err, truehd.ErrInsufficientData) {
				break
			}
			if err != nil {
				if gf.strict {
					return errors.Wrap(err, "extracting frame")
				}
				log.Warning("dropping frame", "error", err.Error())
				continue
			}

			au, err := parser.Parse(frame.Data)
			if err != nil {
				if gf.strict {
					return errors.Wrap(err, "parsing access unit")
				}
				log.Warning("dropping access unit", "error", err.Error())
				continue
			}

			dau, err := decoder.Decode(au, *presentation)
			if err != nil {
				if gf.strict {
					return errors.Wrap(err, "decoding access unit")
				}
				log.Warning("dropping decode", "error", err.Error())
				continue
			}

			if writer == nil {
				writer, err = truehdio.New(truehdio.Format(*format), outFile, int(dau.SampleRate), dau.Channels)
				if err != nil {
					return err
				}
			}

			interleaved, n := interleave(dau)
			if err := writer.WriteSamples(interleaved, n, dau.Channels); err != nil {
				return errors.Wrap(err, "writing samples")
			}
			samplesDecoded += n
			oamd = append(oamd, dau.OAMD...)

			if gf.progress && size > 0 {
				pct := float64(bytesRead) / float64(size) * 100
				fmt.Fprintf(os.Stderr, "\rdecoding... %.1f%%", pct)
			}
		}

		if eof {
			break
		}
	}
	if gf.progress {
		fmt.Fprintln(os.Stderr)
	}

	if writer != nil {
		if err := writer.Close(); err != nil {
			return errors.Wrap(err, "closing output")
		}
	}

	if len(oamd) > 0 {
		sidecarPath := outPath + ".atmos.metadata"
		sc, err := os.Create(sidecarPath)
		if err != nil {
			return errors.Wrap(err, "could not create DAMF sidecar")
		}
		defer sc.Close()
		last := oamd[len(oamd)-1]
		if err := truehdio.WriteDAMFSidecar(sc, &last, filepath.Base(outPath), filepath.Base(sidecarPath), truehdio.WarpMode(*warpMode), *bedConform); err != nil {
			return errors.Wrap(err, "writing DAMF sidecar")
		}
	}

	log.Info("decode complete", "samples", samplesDecoded, "output", outPath)
	return nil
}

func runInfo(args []string) error {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	var gf globalFlags
	gf.register(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return errors.New("info: missing input path")
	}
	inputPath := fs.Arg(0)

	in, _, err := openInput(inputPath)
	if err != nil {
		return errors.Wrap(err, "could not open input")
	}
	defer in.Close()

	extractor := truehd.NewExtractor()
	parser := truehddec.NewParser()
	parser.SetFailLevel(truehddec.FailError)

	buf := make([]byte, 64*1024)
	auCount := 0
	var firstSync *truehddec.MajorSyncInfo
	var lastTimestamp *truehd.Timestamp

	for {
		n, readErr := in.Read(buf)
		if n > 0 {
			extractor.PushBytes(buf[:n])
		}
		eof := readErr == io.EOF
		if readErr != nil && !eof {
			return errors.Wrap(readErr, "reading input")
		}

		for {
			frame, err := extractor.NextFrame()
			if errors.Is(err, truehd.ErrInsufficientData) {
				break
			}
			if err != nil {
				continue
			}
			if frame.Timestamp != nil {
				lastTimestamp = frame.Timestamp
			}
			au, err := parser.Parse(frame.Data)
			if err != nil {
				continue
			}
			auCount++
			if firstSync == nil && au.MajorSyncInfo != nil {
				firstSync = au.MajorSyncInfo
			}
		}
		if eof {
			break
		}
	}

	fmt.Printf("access units: %d\n", auCount)
	if firstSync != nil {
		fmt.Printf("sample rate: %d Hz\n", firstSync.FormatInfo.AudioSamplingFrequency1)
		fmt.Printf("substreams: %d\n", firstSync.Substreams)
		fmt.Printf("variable rate: %v\n", firstSync.VariableRate)
	}
	if lastTimestamp != nil {
		fmt.Printf("last timestamp: %s\n", lastTimestamp.String())
	}
	return nil
}

func openInput(path string) (io.ReadCloser, int64, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), 0, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, info.Size(), nil
}

func defaultOutputPath(inputPath, format string) string {
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	ext := format
	if format == "w64" {
		ext = "w64"
	}
	return base + "." + ext
}

// interleave flattens a DecodedAccessUnit's per-channel sample planes
// into the sample-major [][16]int32 layout truehdio.SampleWriter
// expects.
func interleave(dau *truehddec.DecodedAccessUnit) ([][16]int32, int) {
	if len(dau.Samples) == 0 {
		return nil, 0
	}
	n := len(dau.Samples[0])
	out := make([][16]int32, n)
	for ch, plane := range dau.Samples {
		if ch >= 16 {
			break
		}
		for i := 0; i < n && i < len(plane); i++ {
			out[i][ch] = plane[i]
		}
	}
	return out, n
}
