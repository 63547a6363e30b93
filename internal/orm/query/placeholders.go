package query

import "github.com/ashgate/pgframe/internal/orm/value"

// Placeholders is an append-only ordered collection of bind values.
// Placeholder numbering is assigned at tree-construction time, never at
// emission time, so emission stays a pure function of the tree.
type Placeholders struct {
	values []value.Value
}

// NewPlaceholders returns an empty placeholder vector.
func NewPlaceholders() *Placeholders {
	return &Placeholders{}
}

// Add appends v and returns a Placeholder value referencing its 1-based
// position.
func (p *Placeholders) Add(v value.Value) value.Value {
	p.values = append(p.values, v)
	return value.Placeholder(len(p.values))
}

// Len returns the number of bound values so far.
func (p *Placeholders) Len() int { return len(p.values) }

// Values returns the bind vector in positional order.
func (p *Placeholders) Values() []value.Value {
	return p.values
}

// Bind converts the placeholder vector to driver-ready arguments.
func (p *Placeholders) Bind() ([]any, error) {
	out := make([]any, len(p.values))
	for i, v := range p.values {
		b, err := v.Bind()
		if err != nil {
			return nil, err
		}
		out[i] = b
	}
	return out, nil
}

// AppendOffset copies another placeholder vector's values onto p, returning
// the offset that was applied (the length of p before the copy). A subquery
// built against its own, zero-based Placeholders can be merged into a
// parent's sequence by re-adding each of its values here and using the
// returned offset to shift any Placeholder values embedded in its tree.
func (p *Placeholders) AppendOffset(sub *Placeholders) int {
	offset := len(p.values)
	p.values = append(p.values, sub.values...)
	return offset
}
