package ahocorasick

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"
)

// reorderTerminator ends a reorder map file.
const reorderTerminator = '&'

// ParseReorderMap reads a reorder map: one state id per line, most visited
// first, optionally terminated by a line starting with '&'. Blank lines are
// skipped. Whether the map fits an automaton is checked when the TableMachine
// is built.
func ParseReorderMap(r io.Reader) ([]State, error) {
	var order []State
	scanner := bufio.NewScanner(r)
	line := 0
	for scanner.Scan() {
		line++
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			continue
		}
		if text[0] == reorderTerminator {
			break
		}
		v, err := strconv.ParseInt(text, 10, 32)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("%w: line %d: invalid state %q", ErrMalformedReorderMap, line, text)
		}
		order = append(order, State(v))
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read reorder map: %w", err)
	}
	return order, nil
}

// LoadReorderMap reads a reorder map file.
func LoadReorderMap(path string) ([]State, error) {
	// #nosec G304 -- Path is from configuration, not user input
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open reorder map: %w", err)
	}
	defer f.Close()

	return ParseReorderMap(f)
}

// WriteReorderMap writes order in the format read by ParseReorderMap.
func WriteReorderMap(w io.Writer, order []State) error {
	bw := bufio.NewWriter(w)
	for _, s := range order {
		if _, err := fmt.Fprintln(bw, s); err != nil {
			return err
		}
	}
	if _, err := fmt.Fprintf(bw, "%c\n", reorderTerminator); err != nil {
		return err
	}
	return bw.Flush()
}

// ReorderFromVisits orders states by visit count, most visited first. Ties
// keep BFS order so shallow states win.
func ReorderFromVisits(visits []uint64) []State {
	order := make([]State, len(visits))
	for i := range order {
		order[i] = State(i)
	}
	slices.SortStableFunc(order, func(x, y State) int {
		switch {
		case visits[x] > visits[y]:
			return -1
		case visits[x] < visits[y]:
			return 1
		}
		return 0
	})
	return order
}
