package converter

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/keboola/go-utils/pkg/orderedmap"

	"github.com/ttc-tools/ttc-price-export/internal/types"
	"github.com/ttc-tools/ttc-price-export/internal/validation"
)

// ErrSchema is matched by every SchemaError.
var ErrSchema = errors.New("price table does not match the expected schema")

// SchemaError reports a leaf (or missing subtree) that could not be turned into records.
type SchemaError struct {
	// Path holds the ancestor keys of the failing node, empty for the document root.
	Path []string
	Err  error
}

func (e *SchemaError) Error() string {
	where := "<root>"
	if len(e.Path) > 0 {
		where = strings.Join(e.Path, "/")
	}
	return fmt.Sprintf("%s at %s: %v", ErrSchema, where, e.Err)
}

func (e *SchemaError) Unwrap() []error {
	return []error{ErrSchema, e.Err}
}

// NodeKind is the role a value plays in the price tree.
type NodeKind int

const (
	// NodeOther is a scalar or an array, skipped by the flattener.
	NodeOther NodeKind = iota
	// NodeInterior is an object that is not a price leaf.
	NodeInterior
	// NodeLeaf is an object holding both an average and a max price.
	NodeLeaf
)

func (k NodeKind) String() string {
	switch k {
	case NodeInterior:
		return "interior"
	case NodeLeaf:
		return "leaf"
	default:
		return "other"
	}
}

// Classify decides once per value whether it is a leaf, an interior object or
// something the flattener ignores. For objects it also returns the object view.
func Classify(value interface{}) (NodeKind, *orderedmap.OrderedMap) {
	obj, ok := asObject(value)
	if !ok {
		return NodeOther, nil
	}
	_, hasAvg := obj.Get(validation.AvgKey)
	_, hasMax := obj.Get(validation.MaxKey)
	if hasAvg && hasMax {
		return NodeLeaf, obj
	}
	return NodeInterior, obj
}

// Flatten walks the tree depth first, visiting keys in document order, and
// emits one record per price leaf. The root itself is never classified: its
// scalar children are skipped even when it carries A and X keys. The first
// invalid leaf aborts the walk.
func Flatten(root *orderedmap.OrderedMap) ([]types.PriceRecord, error) {
	records := make([]types.PriceRecord, 0)
	if root == nil {
		return records, nil
	}
	if err := walkChildren(root, nil, &records); err != nil {
		return nil, err
	}
	return records, nil
}

func walk(node interface{}, path []string, out *[]types.PriceRecord) error {
	kind, obj := Classify(node)
	switch kind {
	case NodeLeaf:
		info, errs := validation.DecodePriceInfo(obj)
		if len(errs) > 0 {
			return &SchemaError{Path: slices.Clone(path), Err: errs}
		}
		*out = append(*out, types.PriceRecord{Key: types.NewRecordKey(path), Price: info})
	case NodeInterior:
		return walkChildren(obj, path, out)
	}
	return nil
}

func walkChildren(obj *orderedmap.OrderedMap, path []string, out *[]types.PriceRecord) error {
	for _, key := range obj.Keys() {
		child, _ := obj.Get(key)
		// Clip forces append to copy, so sibling paths never share a backing array.
		if err := walk(child, append(slices.Clip(path), key), out); err != nil {
			return err
		}
	}
	return nil
}

// asObject accepts the object representations a decoded document may hold.
func asObject(value interface{}) (*orderedmap.OrderedMap, bool) {
	switch v := value.(type) {
	case *orderedmap.OrderedMap:
		return v, v != nil
	case orderedmap.OrderedMap:
		return &v, true
	case map[string]interface{}:
		keys := make([]string, 0, len(v))
		for k := range v {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		obj := orderedmap.New()
		for _, k := range keys {
			obj.Set(k, v[k])
		}
		return obj, true
	}
	return nil, false
}
