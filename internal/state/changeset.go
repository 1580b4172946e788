package state

// Record says that Source held an assembly reference to Referenced's output,
// found at KnownPath (relative to Source's project file), before it was
// replaced by a project reference.
type Record struct {
	Source     string `yaml:"sourceProject" json:"sourceProject"`
	Referenced string `yaml:"referencedProject" json:"referencedProject"`
	KnownPath  string `yaml:"knownPaths" json:"knownPaths"`
}

type recordKey struct {
	source, referenced string
}

// ChangeSet is an ordered set of records keyed by (Source, Referenced).
type ChangeSet struct {
	records []Record
	index   map[recordKey]int
}

// NewChangeSet returns an empty change set.
func NewChangeSet() *ChangeSet {
	return &ChangeSet{index: make(map[recordKey]int)}
}

// AddOrUpdate inserts a record, or overwrites the known path of the record
// with the same source and referenced unit.
func (c *ChangeSet) AddOrUpdate(source, referenced, knownPath string) {
	k := recordKey{source, referenced}
	if i, ok := c.index[k]; ok {
		c.records[i].KnownPath = knownPath
		return
	}
	c.index[k] = len(c.records)
	c.records = append(c.records, Record{Source: source, Referenced: referenced, KnownPath: knownPath})
}

// Get returns the record for a (source, referenced) pair.
func (c *ChangeSet) Get(source, referenced string) (Record, bool) {
	i, ok := c.index[recordKey{source, referenced}]
	if !ok {
		return Record{}, false
	}
	return c.records[i], true
}

// RecordsReferencing returns every record whose Referenced unit is name.
func (c *ChangeSet) RecordsReferencing(name string) []Record {
	var out []Record
	for _, r := range c.records {
		if r.Referenced == name {
			out = append(out, r)
		}
	}
	return out
}

// Remove deletes the record for a (source, referenced) pair and reports
// whether it existed.
func (c *ChangeSet) Remove(source, referenced string) bool {
	i, ok := c.index[recordKey{source, referenced}]
	if !ok {
		return false
	}
	c.records = append(c.records[:i], c.records[i+1:]...)
	delete(c.index, recordKey{source, referenced})
	for j := i; j < len(c.records); j++ {
		c.index[recordKey{c.records[j].Source, c.records[j].Referenced}] = j
	}
	return true
}

// Len returns the number of records.
func (c *ChangeSet) Len() int {
	return len(c.records)
}

// Records returns a copy of the records in insertion order.
func (c *ChangeSet) Records() []Record {
	out := make([]Record, len(c.records))
	copy(out, c.records)
	return out
}
