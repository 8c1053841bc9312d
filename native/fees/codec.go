package fees

import (
	"bytes"
	"fmt"
	"math/big"
	"sort"
	"strconv"
	"strings"
)

// UnmarshalTOML decodes a fee table keyed by name length. Keys may be single
// lengths ("7") or inclusive ranges ("14-51") so long tails stay readable.
func (s *Schedule) UnmarshalTOML(data interface{}) error {
	table, ok := data.(map[string]interface{})
	if !ok {
		return fmt.Errorf("fees: schedule must decode from a table")
	}
	normalized := make(map[string]int64, len(table))
	for key, value := range table {
		switch v := value.(type) {
		case int64:
			normalized[key] = v
		case string:
			parsed, err := strconv.ParseInt(strings.ReplaceAll(strings.TrimSpace(v), "_", ""), 10, 64)
			if err != nil {
				return fmt.Errorf("fees: tier %q: %w", key, err)
			}
			normalized[key] = parsed
		default:
			return fmt.Errorf("fees: tier %q must be an integer", key)
		}
	}
	decoded, err := ScheduleFromTable(normalized)
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}

// ScheduleFromTable builds a schedule from length keys. Every length from one
// up to the largest key must be covered exactly once.
func ScheduleFromTable(table map[string]int64) (*Schedule, error) {
	if len(table) == 0 {
		return nil, fmt.Errorf("fees: empty fee table")
	}
	fees := map[int]int64{}
	maxLength := 0
	for key, fee := range table {
		lo, hi, err := parseTierKey(key)
		if err != nil {
			return nil, err
		}
		for length := lo; length <= hi; length++ {
			if _, dup := fees[length]; dup {
				return nil, fmt.Errorf("fees: length %d configured more than once", length)
			}
			fees[length] = fee
		}
		if hi > maxLength {
			maxLength = hi
		}
	}
	tiers := make([]*big.Int, maxLength)
	for length := 1; length <= maxLength; length++ {
		fee, ok := fees[length]
		if !ok {
			return nil, fmt.Errorf("fees: missing fee for length %d", length)
		}
		tiers[length-1] = big.NewInt(fee)
	}
	return NewSchedule(tiers)
}

// Table renders the schedule keyed by length, folding runs of equal fees into
// ranges. ScheduleFromTable is its inverse.
func (s *Schedule) Table() map[string]int64 {
	tiers := s.Tiers()
	out := make(map[string]int64)
	for start := 0; start < len(tiers); {
		end := start
		for end+1 < len(tiers) && tiers[end+1].Cmp(tiers[start]) == 0 {
			end++
		}
		key := strconv.Itoa(start + 1)
		if end > start {
			key += "-" + strconv.Itoa(end+1)
		}
		out[key] = tiers[start].Int64()
		start = end + 1
	}
	return out
}

// MarshalTOML writes the schedule as an inline table ordered by length.
func (s *Schedule) MarshalTOML() ([]byte, error) {
	table := s.Table()
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, key := range SortedLengths(table) {
		if i > 0 {
			buf.WriteString(", ")
		}
		fmt.Fprintf(&buf, "%q = %d", key, table[key])
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// SortedLengths lists the keys of a fee table in numeric order.
func SortedLengths(table map[string]int64) []string {
	keys := make([]string, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool {
		li, _, _ := parseTierKey(keys[i])
		lj, _, _ := parseTierKey(keys[j])
		return li < lj
	})
	return keys
}

func parseTierKey(key string) (int, int, error) {
	trimmed := strings.TrimSpace(key)
	lo, hi := trimmed, trimmed
	if idx := strings.Index(trimmed, "-"); idx > 0 {
		lo, hi = trimmed[:idx], trimmed[idx+1:]
	}
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return 0, 0, fmt.Errorf("fees: invalid tier key %q", key)
	}
	end, err := strconv.Atoi(strings.TrimSpace(hi))
	if err != nil {
		return 0, 0, fmt.Errorf("fees: invalid tier key %q", key)
	}
	if start < 1 || end < start {
		return 0, 0, fmt.Errorf("fees: invalid tier range %q", key)
	}
	return start, end, nil
}
