package document

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/matzehuels/edgeprint/pkg/errors"
)

// Canonical rewrites data so that documents with the same object graph
// serialize to the same bytes.
//
// Objects reachable from the catalog and the info dictionary are renumbered
// in breadth-first order with dictionary keys visited in sorted order, and
// unreachable objects are dropped. Dictionaries are written with sorted
// keys, stream lengths become direct integers, and the file identifier is
// derived from the body instead of the clock. Stream data is copied as is.
func Canonical(data []byte) ([]byte, error) {
	ctx, err := api.ReadContext(bytes.NewReader(data), config())
	if err != nil {
		return nil, invalid(err, "read document")
	}
	if ctx.Root == nil {
		return nil, errors.New(errors.ErrCodeInvalidDocument, "document has no catalog")
	}

	c := &canonicalizer{table: ctx.XRefTable, numbers: map[int]int{}}
	root := c.number(*ctx.Root)
	info := 0
	if ctx.Info != nil {
		info = c.number(*ctx.Info)
	}
	for i := 0; i < len(c.order); i++ {
		c.scan(c.lookup(c.order[i]))
	}

	var buf bytes.Buffer
	fmt.Fprintf(&buf, "%%PDF-%s\n%%\xe2\xe3\xcf\xd3\n", ctx.XRefTable.Version())
	offsets := make([]int, len(c.order))
	for i, old := range c.order {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n", i+1)
		c.write(&buf, c.lookup(old))
		buf.WriteString("\nendobj\n")
	}

	sum := md5.Sum(buf.Bytes())
	id := hex.EncodeToString(sum[:])

	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(c.order)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<</ID [<%s><%s>]", id, id)
	if info > 0 {
		fmt.Fprintf(&buf, "/Info %d 0 R", info)
	}
	fmt.Fprintf(&buf, "/Root %d 0 R/Size %d>>\nstartxref\n%d\n%%%%EOF\n", root, len(c.order)+1, xref)
	return buf.Bytes(), nil
}

type canonicalizer struct {
	table   *model.XRefTable
	numbers map[int]int // old object number -> new
	order   []int       // old object numbers by new number - 1
}

// lookup returns the object stored under old, or nil when it is free or missing.
func (c *canonicalizer) lookup(old int) types.Object {
	entry, ok := c.table.Find(old)
	if !ok || entry == nil || entry.Free {
		return nil
	}
	return entry.Object
}

// number assigns the next object number to ref on first sight.
func (c *canonicalizer) number(ref types.IndirectRef) int {
	old := ref.ObjectNumber.Value()
	if n, ok := c.numbers[old]; ok {
		return n
	}
	c.order = append(c.order, old)
	n := len(c.order)
	c.numbers[old] = n
	return n
}

// scan numbers every reference held by o that points at a live object.
func (c *canonicalizer) scan(o types.Object) {
	switch o := o.(type) {
	case types.IndirectRef:
		if c.lookup(o.ObjectNumber.Value()) != nil {
			c.number(o)
		}
	case types.Dict:
		for _, k := range sortedKeys(o) {
			c.scan(o[k])
		}
	case types.StreamDict:
		for _, k := range sortedKeys(o.Dict) {
			if k != "Length" {
				c.scan(o.Dict[k])
			}
		}
	case types.Array:
		for _, v := range o {
			c.scan(v)
		}
	}
}

// rewrite returns o with every reference renumbered. References to missing
// objects become null, matching how readers resolve them.
func (c *canonicalizer) rewrite(o types.Object) types.Object {
	switch o := o.(type) {
	case types.IndirectRef:
		n, ok := c.numbers[o.ObjectNumber.Value()]
		if !ok {
			return nil
		}
		return *types.NewIndirectRef(n, 0)
	case types.Dict:
		d := types.NewDict()
		for k, v := range o {
			if v = c.rewrite(v); v != nil {
				d[k] = v
			}
		}
		return d
	case types.Array:
		a := make(types.Array, len(o))
		for i, v := range o {
			a[i] = c.rewrite(v)
		}
		return a
	}
	return o
}

func (c *canonicalizer) write(buf *bytes.Buffer, o types.Object) {
	switch o := o.(type) {
	case nil:
		buf.WriteString("null")
	case types.StreamDict:
		d := c.rewrite(o.Dict).(types.Dict)
		d["Length"] = types.Integer(len(o.Raw))
		buf.WriteString(d.PDFString())
		buf.WriteString("\nstream\n")
		buf.Write(o.Raw)
		buf.WriteString("\nendstream")
	default:
		if r := c.rewrite(o); r != nil {
			buf.WriteString(r.PDFString())
		} else {
			buf.WriteString("null")
		}
	}
}

func sortedKeys(d types.Dict) []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
