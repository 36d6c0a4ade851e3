package loader

// chain is the path of names being resolved by one call stack. It is never
// mutated; extend returns a copy.
type chain struct {
	names []string
}

// current returns the name being loaded, or "" at the top level.
func (c chain) current() string {
	if len(c.names) == 0 {
		return ""
	}
	return c.names[len(c.names)-1]
}

func (c chain) contains(name string) bool {
	for _, n := range c.names {
		if n == name {
			return true
		}
	}
	return false
}

func (c chain) extend(name string) chain {
	names := make([]string, len(c.names), len(c.names)+1)
	copy(names, c.names)
	return chain{names: append(names, name)}
}

// cycle returns the chain closed by name.
func (c chain) cycle(name string) []string {
	i := 0
	for i < len(c.names) && c.names[i] != name {
		i++
	}
	out := make([]string, 0, len(c.names)-i+1)
	out = append(out, c.names[i:]...)
	return append(out, name)
}
