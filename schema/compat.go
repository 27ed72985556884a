package schema

import (
	"slices"
	"strings"
)

// Compatible reports mismatches between a producer's output contract and a
// consumer's input contract that can be detected without running either
// side. It is a best-effort check: an empty result does not guarantee that
// every produced value will satisfy the consumer (a string may still fall
// outside an enum, a number may still carry a fraction), but a non-empty
// result means some produced values certainly will not.
func Compatible(producer, consumer *Contract) []Issue {
	var issues []Issue
	compatible("", producer, consumer, &issues)
	return issues
}

func compatible(path string, p, c *Contract, issues *[]Issue) {
	if p == nil || c == nil || p.kind == KindAny || c.kind == KindAny {
		return
	}

	if p.optional && !p.hasDefault && !c.IsOptional() {
		addIssue(issues, path, "may be absent but is required")
	}

	switch c.kind {
	case KindString:
		if p.kind == KindString || p.kind == KindEnum {
			return
		}

	case KindEnum:
		switch p.kind {
		case KindString:
			return
		case KindEnum:
			var extra []string
			for _, v := range p.values {
				if !slices.Contains(c.values, v) {
					extra = append(extra, v)
				}
			}
			if len(extra) > 0 {
				addIssue(issues, path, "produces values [%s] outside [%s]",
					strings.Join(extra, "|"), strings.Join(c.values, "|"))
			}
			return
		}

	case KindNumber, KindInteger:
		if p.kind == KindNumber || p.kind == KindInteger {
			return
		}

	case KindBoolean:
		if p.kind == KindBoolean {
			return
		}

	case KindArray:
		if p.kind == KindArray {
			compatible(path+"[]", p.elem, c.elem, issues)
			return
		}

	case KindObject:
		switch p.kind {
		case KindObject:
			for _, name := range c.FieldNames() {
				cf := c.fields[name]
				pf, ok := p.fields[name]
				if !ok {
					if !cf.IsOptional() {
						addIssue(issues, joinPath(path, name), "required but never produced")
					}
					continue
				}
				compatible(joinPath(path, name), pf, cf, issues)
			}
			return
		case KindRecord:
			if p.elem == nil {
				return
			}
			for _, name := range c.FieldNames() {
				compatible(joinPath(path, name), p.elem.Optional(), c.fields[name], issues)
			}
			return
		}

	case KindRecord:
		switch p.kind {
		case KindObject:
			for _, name := range p.FieldNames() {
				compatible(joinPath(path, name), p.fields[name], c.elem, issues)
			}
			return
		case KindRecord:
			compatible(path+"[*]", p.elem, c.elem, issues)
			return
		}
	}

	addIssue(issues, path, "produces %s but %s is expected", p.kind, c.kind)
}

// AllowsEmpty reports whether an empty mapping satisfies c.
func AllowsEmpty(c *Contract) bool {
	if c == nil {
		return true
	}
	switch c.kind {
	case KindAny, KindRecord:
		return true
	case KindObject:
		for _, f := range c.fields {
			if !f.IsOptional() {
				return false
			}
		}
		return true
	}
	return false
}
