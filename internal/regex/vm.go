package regex

import (
	"strings"
)

// Program is a compiled pattern ready for matching. Matching itself is a
// recursive backtracking walk over the parsed node tree rather than a
// flattened bytecode array — the "separate regex VM" spec §4.4 describes,
// here realized as one thread of recursive calls per alternative tried,
// bounded by a step counter capped at MaxThread*1000 per start position
// (MaxCallDepth and MemCap are not consulted). Exceeding the cap makes that
// attempt fail as a non-match; no ExecError is returned.
type Program struct {
	root          *node
	NumGroups     int
	Names         map[string]int
	CaseFold      bool
	Extended      bool
	Global        bool
	Multiline     bool
	Continue      bool
}

// Compile parses pattern under the given flag string (characters from
// i/x/g/m/c, spec §6.2) into a ready-to-run Program.
func Compile(pattern, flags string) (*Program, error) {
	p := newParser(pattern, flags)
	root, names, err := p.parse()
	if err != nil {
		return nil, err
	}
	prog := &Program{root: root, NumGroups: p.groupNum, Names: names}
	for _, f := range flags {
		switch f {
		case 'i':
			prog.CaseFold = true
		case 'x':
			prog.Extended = true
		case 'g':
			prog.Global = true
		case 'm':
			prog.Multiline = true
		case 'c':
			prog.Continue = true
		}
	}
	if prog.NumGroups > MaxGroups {
		return nil, &CompileError{Kind: ErrTooManyGroups, Msg: "too many capture groups"}
	}
	return prog, nil
}

// Match is one exec() result record (spec §4.4): start offset, length, and
// captured group texts (group 0 is the whole match).
type Match struct {
	Start  int
	Length int
	Groups []string // index 0 = whole match
	Named  map[string]string
}

type capture struct{ start, end int }

type matchState struct {
	subject  []rune
	folded   []rune // lowercased mirror, used when CaseFold is set
	caps     []capture
	steps    int
	prog     *Program
}

func foldRune(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}

func foldString(s []rune) []rune {
	out := make([]rune, len(s))
	for i, r := range s {
		out[i] = foldRune(r)
	}
	return out
}

// Exec finds the leftmost match starting at or after `from`. Unanchored
// matching is implemented by trying successive start positions, equivalent
// to ktre's `.*?` program prefix.
func (prog *Program) Exec(subject string, from int) (*Match, error) {
	runes := []rune(subject)
	st := &matchState{subject: runes, prog: prog}
	if prog.CaseFold {
		st.folded = foldString(runes)
	}
	for start := from; start <= len(runes); start++ {
		st.caps = make([]capture, prog.NumGroups+1)
		for i := range st.caps {
			st.caps[i] = capture{-1, -1}
		}
		st.steps = 0
		end := -1
		ok := st.match(prog.root, start, func(pos int) bool {
			end = pos
			return true
		})
		if ok {
			st.caps[0] = capture{start, end}
			return st.toMatch(), nil
		}
	}
	return nil, nil
}

func (st *matchState) toMatch() *Match {
	m := &Match{Start: st.caps[0].start, Length: st.caps[0].end - st.caps[0].start}
	m.Groups = make([]string, len(st.caps))
	for i, c := range st.caps {
		if c.start < 0 || c.end < 0 {
			m.Groups[i] = ""
			continue
		}
		m.Groups[i] = string(st.subject[c.start:c.end])
	}
	if len(st.prog.Names) > 0 {
		m.Named = map[string]string{}
		for name, idx := range st.prog.Names {
			if idx < len(m.Groups) {
				m.Named[name] = m.Groups[idx]
			}
		}
	}
	return m
}

// ExecAll returns every non-overlapping match (the `/g` behavior).
func (prog *Program) ExecAll(subject string) ([]*Match, error) {
	var out []*Match
	pos := 0
	for pos <= len([]rune(subject)) {
		m, err := prog.Exec(subject, pos)
		if err != nil {
			return nil, err
		}
		if m == nil {
			break
		}
		out = append(out, m)
		if m.Length == 0 {
			pos = m.Start + 1
		} else {
			pos = m.Start + m.Length
		}
	}
	return out, nil
}

// match attempts to match node n at position pos, invoking k with the
// position after a successful match; k itself may fail (return false),
// in which case match must try the next alternative — this is what gives
// the walk its backtracking behavior.
func (st *matchState) match(n *node, pos int, k func(int) bool) bool {
	st.steps++
	if st.steps > MaxThread*1000 {
		return false
	}
	switch n.kind {
	case nChar:
		if pos >= len(st.subject) {
			return false
		}
		if st.charAt(pos) != st.foldCh(n.ch) {
			return false
		}
		return k(pos + 1)

	case nAny:
		if pos >= len(st.subject) || st.subject[pos] == '\n' {
			return false
		}
		return k(pos + 1)

	case nClass:
		if pos >= len(st.subject) {
			return false
		}
		if !classMatches(n.cls, st.subject[pos], st.prog.CaseFold) {
			return false
		}
		return k(pos + 1)

	case nBOL:
		if pos == 0 || (st.prog.Multiline && pos > 0 && st.subject[pos-1] == '\n') {
			return k(pos)
		}
		return false

	case nEOL:
		if pos == len(st.subject) || (st.prog.Multiline && st.subject[pos] == '\n') {
			return k(pos)
		}
		return false

	case nWordBoundary:
		at := isWordBoundary(st.subject, pos)
		if at != n.wbNeg {
			return k(pos)
		}
		return false

	case nConcat:
		return st.matchSeq(n.kids, 0, pos, k)

	case nAlt:
		for _, alt := range n.kids {
			if st.match(alt, pos, k) {
				return true
			}
		}
		return false

	case nGroup:
		inner := n.kids[0]
		if n.groupIdx == 0 {
			return st.match(inner, pos, k)
		}
		saved := st.caps[n.groupIdx]
		ok := st.match(inner, pos, func(end int) bool {
			st.caps[n.groupIdx] = capture{pos, end}
			if k(end) {
				return true
			}
			st.caps[n.groupIdx] = saved
			return false
		})
		if !ok {
			st.caps[n.groupIdx] = saved
		}
		return ok

	case nAtomic:
		// Atomic: commit to the first successful inner match, no
		// backtracking back into it once the continuation fails
		// (DESIGN.md: simplified — behaves like a possessive group).
		matched := -1
		st.match(n.kids[0], pos, func(end int) bool { matched = end; return true })
		if matched == -1 {
			return false
		}
		return k(matched)

	case nLookahead:
		matched := false
		st.match(n.kids[0], pos, func(int) bool { matched = true; return true })
		if matched == n.negLook {
			return false
		}
		return k(pos)

	case nLookbehind:
		// Lookbehind: try every start position at or before pos for a match
		// ending exactly at pos (so variable-width bodies work too).
		matched := false
		for start := pos; start >= 0; start-- {
			if st.match(n.kids[0], start, func(end int) bool { return end == pos }) {
				matched = true
				break
			}
		}
		if matched == n.negLook {
			return false
		}
		return k(pos)

	case nBackref:
		idx := n.backrefIdx
		if n.backrefName != "" {
			idx = st.prog.Names[n.backrefName]
		}
		if idx <= 0 || idx >= len(st.caps) {
			return false
		}
		c := st.caps[idx]
		if c.start < 0 {
			return k(pos) // unset group: matches empty, per common PCRE leniency
		}
		text := st.subject[c.start:c.end]
		end := pos + len(text)
		if end > len(st.subject) {
			return false
		}
		for i, r := range text {
			if st.charAt(pos+i) != st.foldCh(r) {
				return false
			}
		}
		return k(end)

	case nStar:
		return st.matchRepeat(n.kids[0], 0, -1, n.greedy, pos, k)
	case nPlus:
		return st.matchRepeat(n.kids[0], 1, -1, n.greedy, pos, k)
	case nQuest:
		return st.matchRepeat(n.kids[0], 0, 1, n.greedy, pos, k)
	case nRepeat:
		return st.matchRepeat(n.kids[0], n.min, n.max, n.greedy, pos, k)

	default:
		return false
	}
}

func (st *matchState) matchSeq(kids []*node, i, pos int, k func(int) bool) bool {
	if i >= len(kids) {
		return k(pos)
	}
	return st.match(kids[i], pos, func(next int) bool {
		return st.matchSeq(kids, i+1, next, k)
	})
}

// matchRepeat handles *, +, ?, and {n,m}, greedy or lazy, via recursive
// backtracking: greedy tries "one more" before falling through to k;
// lazy tries k first before trying "one more".
func (st *matchState) matchRepeat(child *node, min, max int, greedy bool, pos int, k func(int) bool) bool {
	var rec func(count, at int) bool
	rec = func(count, at int) bool {
		st.steps++
		if st.steps > MaxThread*1000 {
			return false
		}
		canMore := max < 0 || count < max
		tryMore := func() bool {
			if !canMore {
				return false
			}
			return st.match(child, at, func(next int) bool {
				if next == at && count >= min {
					return false // avoid infinite loop on zero-width match
				}
				return rec(count+1, next)
			})
		}
		tryDone := func() bool {
			if count < min {
				return false
			}
			return k(at)
		}
		if greedy {
			if tryMore() {
				return true
			}
			return tryDone()
		}
		if tryDone() {
			return true
		}
		return tryMore()
	}
	return rec(0, pos)
}

func (st *matchState) charAt(pos int) rune {
	if st.folded != nil {
		return st.folded[pos]
	}
	return st.subject[pos]
}

func (st *matchState) foldCh(r rune) rune {
	if st.prog.CaseFold {
		return foldRune(r)
	}
	return r
}

func classMatches(c *class, r rune, fold bool) bool {
	match := false
	for _, preset := range c.preset {
		if presetMatches(preset, r) {
			match = true
			break
		}
	}
	if !match {
		for _, rg := range c.ranges {
			lo, hi := rg[0], rg[1]
			if fold {
				rf := foldRune(r)
				if rf >= foldRune(lo) && rf <= foldRune(hi) {
					match = true
					break
				}
			}
			if r >= lo && r <= hi {
				match = true
				break
			}
		}
	}
	if c.negate {
		return !match
	}
	return match
}

func presetMatches(preset byte, r rune) bool {
	switch preset {
	case 'd':
		return r >= '0' && r <= '9'
	case 'D':
		return !(r >= '0' && r <= '9')
	case 'w':
		return isWordChar(r)
	case 'W':
		return !isWordChar(r)
	case 's':
		return r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f'
	case 'S':
		return !(r == ' ' || r == '\t' || r == '\n' || r == '\r' || r == '\v' || r == '\f')
	}
	return false
}

func isWordChar(r rune) bool {
	return r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isWordBoundary(s []rune, pos int) bool {
	before := pos > 0 && isWordChar(s[pos-1])
	after := pos < len(s) && isWordChar(s[pos])
	return before != after
}

// Split implements spec §4.4's split(subject) -> array-of-strings.
func (prog *Program) Split(subject string) ([]string, error) {
	matches, err := prog.ExecAll(subject)
	if err != nil {
		return nil, err
	}
	runes := []rune(subject)
	var out []string
	last := 0
	for _, m := range matches {
		if m.Length == 0 {
			continue
		}
		out = append(out, string(runes[last:m.Start]))
		last = m.Start + m.Length
	}
	out = append(out, string(runes[last:]))
	return out, nil
}

// Filter implements spec §4.4's filter(subject, replacement, indicator):
// substitutes every match, recognizing \U \L \E \u \l case-mapping escapes
// and \<digit> / <indicator><digit> group references.
func (prog *Program) Filter(subject, replacement, indicator string) (string, error) {
	matches, err := prog.ExecAll(subject)
	if err != nil {
		return "", err
	}
	if indicator == "" {
		indicator = "$"
	}
	runes := []rune(subject)
	var sb strings.Builder
	last := 0
	for _, m := range matches {
		sb.WriteString(string(runes[last:m.Start]))
		sb.WriteString(expandReplacement(replacement, m, indicator))
		last = m.Start + m.Length
	}
	sb.WriteString(string(runes[last:]))
	return sb.String(), nil
}

func expandReplacement(repl string, m *Match, indicator string) string {
	var sb strings.Builder
	runes := []rune(repl)
	mode := byte(0) // 0 none, 'U' upper, 'L' lower
	oneShot := byte(0)
	write := func(s string) {
		for _, r := range s {
			switch {
			case oneShot == 'u':
				sb.WriteRune(toUpper(r))
				oneShot = 0
			case oneShot == 'l':
				sb.WriteRune(toLower(r))
				oneShot = 0
			case mode == 'U':
				sb.WriteRune(toUpper(r))
			case mode == 'L':
				sb.WriteRune(toLower(r))
			default:
				sb.WriteRune(r)
			}
		}
	}
	indRunes := []rune(indicator)
	for i := 0; i < len(runes); i++ {
		r := runes[i]
		if r == '\\' && i+1 < len(runes) {
			e := runes[i+1]
			switch e {
			case 'U':
				mode = 'U'
				i++
				continue
			case 'L':
				mode = 'L'
				i++
				continue
			case 'E':
				mode = 0
				i++
				continue
			case 'u':
				oneShot = 'u'
				i++
				continue
			case 'l':
				oneShot = 'l'
				i++
				continue
			case '\\':
				write("\\")
				i++
				continue
			}
			if isDigit(e) {
				j := i + 1
				for j < len(runes) && isDigit(runes[j]) {
					j++
				}
				n := atoiRunes(runes[i+1 : j])
				if n < len(m.Groups) {
					write(m.Groups[n])
				}
				i = j - 1
				continue
			}
		}
		if len(indRunes) > 0 && r == indRunes[0] && i+1 < len(runes) && isDigit(runes[i+1]) {
			j := i + 1
			for j < len(runes) && isDigit(runes[j]) {
				j++
			}
			n := atoiRunes(runes[i+1 : j])
			if n < len(m.Groups) {
				write(m.Groups[n])
			}
			i = j - 1
			continue
		}
		write(string(r))
	}
	return sb.String()
}

func atoiRunes(rs []rune) int {
	n := 0
	for _, r := range rs {
		n = n*10 + int(r-'0')
	}
	return n
}

func toUpper(r rune) rune {
	if r >= 'a' && r <= 'z' {
		return r - ('a' - 'A')
	}
	return r
}

func toLower(r rune) rune {
	if r >= 'A' && r <= 'Z' {
		return r + ('a' - 'A')
	}
	return r
}
