package sdb

import "strings"

// demangleName decodes an Itanium-ABI mangled C++ symbol into a
// readable spelling. Demangling is opportunistic: any construct this
// decoder doesn't speak (lambdas, ABI tags, expression template
// arguments, ...) makes it report ok=false and the caller keeps the
// mangled name. That is enough for the function and object symbols a
// debugging session actually looks up by name.
func demangleName(s string) (string, bool) {
	if !strings.HasPrefix(s, "_Z") {
		return "", false
	}
	d := &demangler{s: s, pos: 2}
	name, params, ok := d.encoding()
	if !ok {
		return "", false
	}
	if params == "" {
		return name, true
	}
	return name + params, true
}

type demangler struct {
	s    string
	pos  int
	subs []string
}

func (d *demangler) peek() byte {
	if d.pos >= len(d.s) {
		return 0
	}
	return d.s[d.pos]
}

func (d *demangler) next() byte {
	c := d.peek()
	d.pos++
	return c
}

func (d *demangler) encoding() (name, params string, ok bool) {
	name, ok = d.name()
	if !ok {
		return "", "", false
	}
	if d.pos >= len(d.s) {
		return name, "", true
	}
	var args []string
	for d.pos < len(d.s) {
		if d.peek() == 'v' && len(args) == 0 {
			d.pos++
			break
		}
		t, ok := d.typ()
		if !ok {
			return "", "", false
		}
		args = append(args, t)
	}
	return name, "(" + strings.Join(args, ", ") + ")", true
}

func (d *demangler) name() (string, bool) {
	switch d.peek() {
	case 'N':
		return d.nestedName()
	case 'S':
		base, ok := d.substitution()
		if !ok {
			return "", false
		}
		// std::name is spelled S t <source-name> without an N wrapper.
		if d.pos < len(d.s) && d.peek() >= '0' && d.peek() <= '9' {
			part, ok := d.sourceName()
			if !ok {
				return "", false
			}
			return base + "::" + part, true
		}
		return base, true
	default:
		n, ok := d.unqualifiedName("")
		if !ok {
			return "", false
		}
		if d.peek() == 'I' {
			t, ok := d.templateArgs()
			if !ok {
				return "", false
			}
			n += t
		}
		return n, true
	}
}

func (d *demangler) nestedName() (string, bool) {
	d.pos++ // N
	// CV-qualifiers and ref-qualifiers on member functions.
	for d.peek() == 'K' || d.peek() == 'V' || d.peek() == 'r' || d.peek() == 'R' || d.peek() == 'O' {
		d.pos++
	}
	var parts []string
	for d.peek() != 'E' {
		if d.pos >= len(d.s) {
			return "", false
		}
		switch d.peek() {
		case 'S':
			part, ok := d.substitution()
			if !ok {
				return "", false
			}
			parts = append(parts, part)
		case 'I':
			if len(parts) == 0 {
				return "", false
			}
			t, ok := d.templateArgs()
			if !ok {
				return "", false
			}
			parts[len(parts)-1] += t
		default:
			enclosing := ""
			if len(parts) > 0 {
				enclosing = parts[len(parts)-1]
			}
			part, ok := d.unqualifiedName(enclosing)
			if !ok {
				return "", false
			}
			parts = append(parts, part)
		}
		if len(parts) > 0 {
			d.subs = append(d.subs, strings.Join(parts, "::"))
		}
	}
	d.pos++ // E
	return strings.Join(parts, "::"), true
}

func (d *demangler) unqualifiedName(enclosing string) (string, bool) {
	c := d.peek()
	switch {
	case c >= '0' && c <= '9':
		return d.sourceName()
	case c == 'C':
		d.pos += 2 // C1/C2/C3
		return lastComponent(enclosing), enclosing != ""
	case c == 'D':
		d.pos += 2 // D0/D1/D2
		return "~" + lastComponent(enclosing), enclosing != ""
	default:
		// Operator names, just the common ones.
		if op, ok := operatorNames[d.s[d.pos:min(d.pos+2, len(d.s))]]; ok {
			d.pos += 2
			return op, true
		}
		return "", false
	}
}

func lastComponent(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}

var operatorNames = map[string]string{
	"pl": "operator+", "mi": "operator-", "ml": "operator*",
	"dv": "operator/", "rm": "operator%", "eq": "operator==",
	"ne": "operator!=", "lt": "operator<", "gt": "operator>",
	"ix": "operator[]", "cl": "operator()", "aS": "operator=",
	"pp": "operator++", "mm": "operator--",
}

func (d *demangler) sourceName() (string, bool) {
	n := 0
	for c := d.peek(); c >= '0' && c <= '9'; c = d.peek() {
		n = n*10 + int(c-'0')
		d.pos++
	}
	if n == 0 || d.pos+n > len(d.s) {
		return "", false
	}
	name := d.s[d.pos : d.pos+n]
	d.pos += n
	return name, true
}

func (d *demangler) substitution() (string, bool) {
	d.pos++ // S
	switch d.next() {
	case 't':
		return "std", true
	case 's':
		return "std::string", true
	case 'a':
		return "std::allocator", true
	case 'b':
		return "std::basic_string", true
	case 'i':
		return "std::istream", true
	case 'o':
		return "std::ostream", true
	case 'd':
		return "std::iostream", true
	case '_':
		if len(d.subs) == 0 {
			return "", false
		}
		return d.subs[0], true
	default:
		// S<seq-id>_ back-references; seq-id is base-36 starting after
		// the first substitution.
		c := d.s[d.pos-1]
		idx := 0
		switch {
		case c >= '0' && c <= '9':
			idx = int(c-'0') + 1
		case c >= 'A' && c <= 'Z':
			idx = int(c-'A') + 11
		default:
			return "", false
		}
		if d.next() != '_' || idx >= len(d.subs) {
			return "", false
		}
		return d.subs[idx], true
	}
}

func (d *demangler) templateArgs() (string, bool) {
	d.pos++ // I
	var args []string
	for d.peek() != 'E' {
		if d.pos >= len(d.s) {
			return "", false
		}
		t, ok := d.typ()
		if !ok {
			return "", false
		}
		args = append(args, t)
	}
	d.pos++ // E
	return "<" + strings.Join(args, ", ") + ">", true
}

var builtinTypes = map[byte]string{
	'v': "void", 'w': "wchar_t", 'b': "bool", 'c': "char",
	'a': "signed char", 'h': "unsigned char", 's': "short",
	't': "unsigned short", 'i': "int", 'j': "unsigned int",
	'l': "long", 'm': "unsigned long", 'x': "long long",
	'y': "unsigned long long", 'f': "float", 'd': "double",
	'e': "long double", 'z': "...",
}

func (d *demangler) typ() (string, bool) {
	c := d.peek()
	if t, ok := builtinTypes[c]; ok {
		d.pos++
		return t, true
	}
	switch c {
	case 'P':
		d.pos++
		t, ok := d.typ()
		if !ok {
			return "", false
		}
		d.subs = append(d.subs, t+"*")
		return t + "*", true
	case 'R':
		d.pos++
		t, ok := d.typ()
		if !ok {
			return "", false
		}
		d.subs = append(d.subs, t+"&")
		return t + "&", true
	case 'O':
		d.pos++
		t, ok := d.typ()
		if !ok {
			return "", false
		}
		return t + "&&", true
	case 'K':
		d.pos++
		t, ok := d.typ()
		if !ok {
			return "", false
		}
		d.subs = append(d.subs, t+" const")
		return t + " const", true
	case 'L':
		// Literal template argument: L <type> <value> E.
		d.pos++
		if _, ok := d.typ(); !ok {
			return "", false
		}
		start := d.pos
		for d.pos < len(d.s) && d.peek() != 'E' {
			d.pos++
		}
		if d.pos >= len(d.s) {
			return "", false
		}
		val := d.s[start:d.pos]
		d.pos++ // E
		return val, true
	case 'N', 'S':
		n, ok := d.name()
		if !ok {
			return "", false
		}
		d.subs = append(d.subs, n)
		return n, true
	default:
		if c >= '0' && c <= '9' {
			n, ok := d.sourceName()
			if !ok {
				return "", false
			}
			if d.peek() == 'I' {
				t, ok := d.templateArgs()
				if !ok {
					return "", false
				}
				n += t
			}
			d.subs = append(d.subs, n)
			return n, true
		}
		return "", false
	}
}
