// =============================================================================
// TTC Price Export - XML Writer Module
// =============================================================================
//
// This module renders a converted price table as XML for consumers that
// cannot read CSV.
//
// XML STRUCTURE:
//   Consecutive records of the same item are grouped under one element:
//
//   <?xml version="1.0" encoding="UTF-8"?>
//   <priceTable timestamp="1700000000">
//     <item n="1" id="4521" name="Steel Sword">
//       <price n="1" quality="1" level="50" avg="10.5" max="20" min="5" entryCount="3" amountCount="4"/>
//       <price n="2" quality="2" avg="12" max="15" min="9.5" entryCount="7" amountCount="70"/>
//     </item>
//     <item n="2" id="9001">
//       <price n="3" avg="1" max="2" min="1" entryCount="1" amountCount="1" suggestedPrice="1.5"/>
//     </item>
//   </priceTable>
//
//   - Empty key segments and absent optional values are left out
//   - Price numbering continues across items unless GlobalNumbering is off
//   - name is set only when the lookup knows the item
//
// =============================================================================

package xmlwriter

import (
	"bufio"
	"encoding/xml"
	"io"
	"strconv"

	"github.com/ttc-tools/ttc-price-export/internal/csvwriter"
	"github.com/ttc-tools/ttc-price-export/internal/types"
)

// =============================================================================
// XML GENERATION OPTIONS
// =============================================================================

// Options contains options for XML generation.
type Options struct {
	// Indent is the string used for indentation.
	// Default: "  " (two spaces)
	Indent string

	// IncludeXMLDeclaration determines whether to include the XML declaration.
	// Default: true
	IncludeXMLDeclaration bool

	// GlobalNumbering numbers prices 1, 2, 3... across all items.
	// If false, numbering restarts at 1 for each item.
	// Default: true
	GlobalNumbering bool
}

// DefaultOptions returns the default generation options.
func DefaultOptions() Options {
	return Options{
		Indent:                "  ",
		IncludeXMLDeclaration: true,
		GlobalNumbering:       true,
	}
}

// =============================================================================
// XML GENERATION FUNCTIONS
// =============================================================================

// Write renders the table with the default options.
func Write(w io.Writer, conv *types.ConversionResult, lookup types.Lookup) error {
	return WriteWithOptions(w, conv, lookup, DefaultOptions())
}

// WriteWithOptions renders the table, streaming one element at a time.
//
// PARAMETERS:
//   - w: Destination of the document.
//   - conv: The converted price table.
//   - lookup: Item names, may be empty.
//   - options: Formatting options.
//
// RETURNS:
//   - The first write error, if any.
func WriteWithOptions(w io.Writer, conv *types.ConversionResult, lookup types.Lookup, options Options) error {
	out := &elementWriter{w: bufio.NewWriter(w), indent: options.Indent}

	if options.IncludeXMLDeclaration {
		out.raw(xml.Header)
	}

	var rootAttrs []xml.Attr
	if conv.Timestamp != nil {
		rootAttrs = append(rootAttrs, attr("timestamp", strconv.FormatInt(*conv.Timestamp, 10)))
	}
	out.open("priceTable", rootAttrs, 0)

	records := conv.Records
	itemIndex, priceIndex := 0, 0
	for start := 0; start < len(records); {
		id := records[start].Key.ItemID()
		end := start + 1
		for end < len(records) && records[end].Key.ItemID() == id {
			end++
		}

		itemIndex++
		itemAttrs := []xml.Attr{attr("n", strconv.Itoa(itemIndex)), attr("id", id)}
		if name, ok := lookup[id]; ok {
			itemAttrs = append(itemAttrs, attr("name", name))
		}
		out.open("item", itemAttrs, 1)

		if !options.GlobalNumbering {
			priceIndex = 0
		}
		for _, record := range records[start:end] {
			priceIndex++
			out.empty("price", priceAttrs(record, priceIndex), 2)
		}

		out.close("item", 1)
		start = end
	}

	out.close("priceTable", 0)
	return out.flush()
}

// priceAttrs lists the key segments below the item id, then the values.
func priceAttrs(r types.PriceRecord, n int) []xml.Attr {
	attrs := []xml.Attr{attr("n", strconv.Itoa(n))}
	optional := func(name, value string) {
		if value != "" {
			attrs = append(attrs, attr(name, value))
		}
	}

	optional("quality", r.Key.Quality())
	optional("level", r.Key.Level())
	optional("trait", r.Key.TraitID())
	optional("variant", r.Key.Variant())

	// PriceRow already renders absent optionals as "".
	row := csvwriter.PriceRow(r)
	for i, name := range []string{
		"avg", "max", "min", "entryCount", "amountCount",
		"suggestedPrice", "saleAvg", "saleEntryCount", "saleAmountCount",
	} {
		optional(name, row[5+i])
	}
	return attrs
}

func attr(name, value string) xml.Attr {
	return xml.Attr{Name: xml.Name{Local: name}, Value: value}
}

// =============================================================================
// ELEMENT WRITER
// =============================================================================

// elementWriter writes indented elements and keeps the first error.
type elementWriter struct {
	w      *bufio.Writer
	indent string
	err    error
}

func (e *elementWriter) raw(s string) {
	if e.err == nil {
		_, e.err = e.w.WriteString(s)
	}
}

func (e *elementWriter) startTag(name string, attrs []xml.Attr, level int) {
	for i := 0; i < level; i++ {
		e.raw(e.indent)
	}
	e.raw("<" + name)
	for _, a := range attrs {
		e.raw(" " + a.Name.Local + `="`)
		if e.err == nil {
			e.err = xml.EscapeText(e.w, []byte(a.Value))
		}
		e.raw(`"`)
	}
}

func (e *elementWriter) open(name string, attrs []xml.Attr, level int) {
	e.startTag(name, attrs, level)
	e.raw(">\n")
}

// empty writes a self-closing element.
func (e *elementWriter) empty(name string, attrs []xml.Attr, level int) {
	e.startTag(name, attrs, level)
	e.raw("/>\n")
}

func (e *elementWriter) close(name string, level int) {
	for i := 0; i < level; i++ {
		e.raw(e.indent)
	}
	e.raw("</" + name + ">\n")
}

func (e *elementWriter) flush() error {
	if e.err != nil {
		return e.err
	}
	return e.w.Flush()
}
