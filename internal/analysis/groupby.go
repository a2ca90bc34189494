package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/KaramelBytes/tabstat/internal/frame"
)

// Aggregation requests one operation over one column, per group.
type Aggregation struct {
	Column    string    `json:"column" yaml:"column"`
	Operation Operation `json:"operation" yaml:"operation"`
}

// Key is the name the result is stored under: "{column}_{operation}".
func (a Aggregation) Key() string { return a.Column + "_" + string(a.Operation) }

// ParseAggregation reads "column:operation". The column may itself contain
// colons; the last one separates the operation.
func ParseAggregation(s string) (Aggregation, error) {
	i := strings.LastIndex(s, ":")
	if i <= 0 || i == len(s)-1 {
		return Aggregation{}, fmt.Errorf("invalid aggregation %q (want column:operation)", s)
	}
	op, err := ParseOperation(s[i+1:])
	if err != nil {
		return Aggregation{}, err
	}
	return Aggregation{Column: strings.TrimSpace(s[:i]), Operation: op}, nil
}

// AggregateValue is the outcome of one Aggregation within a group.
type AggregateValue struct {
	Column    string
	Operation Operation
	Value     float64
}

// Group is the set of rows sharing one raw value of the grouping column.
type Group struct {
	Value frame.Value
	// Count is the number of rows in the group.
	Count        int
	Aggregations map[string]AggregateValue
}

// GroupByResult holds groups in order of first appearance.
type GroupByResult struct {
	GroupColumn string  `json:"groupColumn" yaml:"groupColumn"`
	Groups      []Group `json:"groups" yaml:"groups"`
}

// GroupBy partitions rows by the raw value of groupColumn (null, numbers,
// strings, booleans and times are distinct keys) and applies every
// aggregation per group. Non-numeric cells are left out of numeric
// operations; count is the number of cells gathered. Aggregations naming a
// column the dataset lacks are skipped. The group column itself must exist.
func GroupBy(df *frame.DataFrame, groupColumn string, aggs []Aggregation) (GroupByResult, error) {
	keys, err := lookupColumn(df, groupColumn)
	if err != nil {
		return GroupByResult{}, err
	}
	normalized := make([]Aggregation, len(aggs))
	for i, a := range aggs {
		op, err := ParseOperation(string(a.Operation))
		if err != nil {
			return GroupByResult{}, err
		}
		normalized[i] = Aggregation{Column: a.Column, Operation: op}
	}
	aggs = normalized

	index := make(map[frame.Key]int)
	var (
		values []frame.Value
		rows   [][]int
	)
	for i, v := range keys {
		k := v.Key()
		g, ok := index[k]
		if !ok {
			g = len(values)
			index[k] = g
			values = append(values, v)
			rows = append(rows, nil)
		}
		rows[g] = append(rows[g], i)
	}

	res := GroupByResult{GroupColumn: groupColumn, Groups: make([]Group, len(values))}
	for g, v := range values {
		group := Group{Value: v, Count: len(rows[g]), Aggregations: make(map[string]AggregateValue, len(aggs))}
		for _, a := range aggs {
			col, ok := df.Column(a.Column)
			if !ok {
				continue
			}
			gathered := make([]frame.Value, len(rows[g]))
			for j, r := range rows[g] {
				gathered[j] = col[r]
			}
			group.Aggregations[a.Key()] = AggregateValue{
				Column:    a.Column,
				Operation: a.Operation,
				Value:     aggregate(a.Operation, gathered),
			}
		}
		res.Groups[g] = group
	}
	return res, nil
}

func aggregate(op Operation, raw []frame.Value) float64 {
	if op == OpCount {
		return float64(len(raw))
	}
	return reduce(op, frame.Extract(raw).Values)
}

type aggregateValueJSON struct {
	Column    string    `json:"column" yaml:"column"`
	Operation Operation `json:"operation" yaml:"operation"`
	Value     jsonFloat `json:"value" yaml:"value"`
}

func (a AggregateValue) wire() aggregateValueJSON {
	return aggregateValueJSON{Column: a.Column, Operation: a.Operation, Value: jsonFloat(a.Value)}
}

func (a AggregateValue) MarshalJSON() ([]byte, error) { return json.Marshal(a.wire()) }

func (a AggregateValue) MarshalYAML() (any, error) { return a.wire(), nil }

func (a *AggregateValue) UnmarshalJSON(b []byte) error {
	var w aggregateValueJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*a = AggregateValue{Column: w.Column, Operation: w.Operation, Value: float64(w.Value)}
	return nil
}

type groupJSON struct {
	GroupValue   frame.Value               `json:"groupValue" yaml:"groupValue"`
	Count        int                       `json:"count" yaml:"count"`
	Aggregations map[string]AggregateValue `json:"aggregations" yaml:"aggregations"`
}

func (g Group) wire() groupJSON {
	return groupJSON{GroupValue: g.Value, Count: g.Count, Aggregations: g.Aggregations}
}

func (g Group) MarshalJSON() ([]byte, error) { return json.Marshal(g.wire()) }

func (g Group) MarshalYAML() (any, error) { return g.wire(), nil }

func (g *Group) UnmarshalJSON(b []byte) error {
	var w groupJSON
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	*g = Group{Value: w.GroupValue, Count: w.Count, Aggregations: w.Aggregations}
	return nil
}
