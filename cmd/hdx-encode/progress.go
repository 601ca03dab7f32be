/*
 * Copyright (c) 2025 Hardiyanto Y -Ebiet.
 * This software is part of the HDX (Hardix Audio) project.
 * This code is provided "as is", without warranty of any kind.
 */

package main

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

const barWidth = 30

type Progress struct {
	out     io.Writer
	total   int
	current int
	failed  int
	mu      sync.Mutex
}

func NewProgress(out io.Writer, total int) *Progress {
	return &Progress{out: out, total: total}
}

// Done records one finished file.
func (p *Progress) Done(ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.current++
	if !ok {
		p.failed++
	}
	p.draw()
}

func (p *Progress) draw() {
	percent := 1.0
	if p.total > 0 {
		percent = float64(p.current) / float64(p.total)
	}
	filled := int(float64(barWidth) * percent)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)

	fmt.Fprintf(p.out, "\r [ENCODING] [%s] %d%% (%d/%d files, %d failed)", bar, int(percent*100), p.current, p.total, p.failed)
	if p.current == p.total {
		fmt.Fprintln(p.out)
	}
}
