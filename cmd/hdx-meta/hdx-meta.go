/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	flag "github.com/spf13/pflag"

	"hdxremote/internal/media"
	"hdxremote/pkg/spec"
)

const (
	developer_title    = "Developer Hardiyanto"
	developer_subtitle = "Build 27/12/2025 Ebiet Version"
	app_name           = "HDX-Meta"
	general_usage      = "Usage: hdx-meta [--json] <file.wav|file.opf|file://uri>..."
)

type mediaInfo struct {
	URI        string `json:"uri"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Channels   int    `json:"channels,omitempty"`
	Precision  int    `json:"precision,omitempty"`
	Samples    int    `json:"samples,omitempty"`
	DurationMs int64  `json:"duration_ms"`
	Error      string `json:"error,omitempty"`
}

func main() {
	jsonDump := flag.Bool("json", false, "print one JSON object per file")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Printf("\n%s %d.%d\n", app_name, spec.VersionMajor, spec.VersionMinor)
		fmt.Printf("%s %s\n", developer_title, developer_subtitle)
		fmt.Printf("%s\n", general_usage)
		return
	}

	failed := false
	for _, uri := range flag.Args() {
		info := inspect(uri)
		failed = failed || info.Error != ""
		if *jsonDump {
			json.NewEncoder(os.Stdout).Encode(info)
		} else {
			printInfo(os.Stdout, info)
		}
	}
	if failed {
		os.Exit(1)
	}
}

func inspect(uri string) mediaInfo {
	info := mediaInfo{URI: uri}
	s, format, err := media.Open(uri)
	if err != nil {
		info.Error = err.Error()
		return info
	}
	defer s.Close()

	info.SampleRate = int(format.SampleRate)
	info.Channels = format.NumChannels
	info.Precision = format.Precision
	info.Samples = s.Len()
	info.DurationMs = format.SampleRate.D(s.Len()).Milliseconds()
	return info
}

func printInfo(w io.Writer, info mediaInfo) {
	fmt.Fprintf(w, "[%s]\n", info.URI)
	if info.Error != "" {
		fmt.Fprintf(w, "  error    : %s\n", info.Error)
		return
	}
	fmt.Fprintf(w, "  format   : %d Hz, %d ch, %d-bit\n", info.SampleRate, info.Channels, info.Precision*8)
	fmt.Fprintf(w, "  samples  : %d\n", info.Samples)
	fmt.Fprintf(w, "  duration : %s\n", time.Duration(info.DurationMs)*time.Millisecond)
}
