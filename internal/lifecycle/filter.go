package lifecycle

// Filter matches a Candidate against a dependency registration's
// properties. A service may carry a Filter in its properties; candidates
// are matched against it before edges form.
type Filter interface {
	Match(candidate Candidate) bool
}

// ServiceIDFilter accepts only the named service id.
type ServiceIDFilter struct {
	ID ServiceID
}

func (f ServiceIDFilter) Match(c Candidate) bool { return c.ID == f.ID }

// PropertyFilter accepts candidates whose Properties[Key] equals Value.
// A candidate missing Key is rejected.
type PropertyFilter struct {
	Key   string
	Value interface{}
}

func (f PropertyFilter) Match(c Candidate) bool {
	v, ok := c.Properties[f.Key]
	return ok && v == f.Value
}

// NotFilter negates an inner filter.
type NotFilter struct {
	Inner Filter
}

func (f NotFilter) Match(c Candidate) bool { return !f.Inner.Match(c) }

// AndFilter accepts only if every inner filter accepts.
type AndFilter struct {
	Filters []Filter
}

func (f AndFilter) Match(c Candidate) bool {
	for _, inner := range f.Filters {
		if !inner.Match(c) {
			return false
		}
	}
	return true
}
