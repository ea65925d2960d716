package cli

import "testing"

func TestParseFileOnly(t *testing.T) {
	o, err := ParseArgs([]string{"script.oak"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if o.File != "script.oak" || o.EvalSrc != "" {
		t.Fatalf("got %#v", o)
	}
}

func TestParseEvalOnly(t *testing.T) {
	o, err := ParseArgs([]string{"-e", "println 1"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if o.EvalSrc != "println 1" || o.File != "" {
		t.Fatalf("got %#v", o)
	}
}

func TestParseFileAndEval(t *testing.T) {
	o, err := ParseArgs([]string{"script.oak", "-e", "println x"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if o.File != "script.oak" || o.EvalSrc != "println x" {
		t.Fatalf("got %#v", o)
	}
}

func TestParsePrintAll(t *testing.T) {
	o, err := ParseArgs([]string{"-p", "script.oak"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if !o.Print.Any() || !o.Print.Code || !o.Print.GC {
		t.Fatalf("expected -p to set every print flag, got %#v", o.Print)
	}
}

func TestParseIndividualPrintFlags(t *testing.T) {
	o, err := ParseArgs([]string{"-pc", "-pg", "script.oak"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if !o.Print.Code || !o.Print.GC || o.Print.AST || o.Print.Tokens {
		t.Fatalf("got %#v", o.Print)
	}
}

func TestParseNoExecAndSuppress(t *testing.T) {
	o, err := ParseArgs([]string{"-d", "-np", "script.oak"})
	if err != nil {
		t.Fatalf("ParseArgs: %v", err)
	}
	if !o.NoExec || !o.Suppress {
		t.Fatalf("got %#v", o)
	}
}

func TestParseNoInputIsError(t *testing.T) {
	if _, err := ParseArgs(nil); err == nil {
		t.Fatalf("expected an error when neither -e nor a file is given")
	}
}

func TestParseTwoPositionalsIsError(t *testing.T) {
	if _, err := ParseArgs([]string{"a.oak", "b.oak"}); err == nil {
		t.Fatalf("expected an error for two positional arguments")
	}
}

func TestParseRepeatedEvalIsError(t *testing.T) {
	if _, err := ParseArgs([]string{"-e", "1", "-e", "2"}); err == nil {
		t.Fatalf("expected an error for a repeated -e flag")
	}
}

func TestParseMissingEvalArgIsError(t *testing.T) {
	if _, err := ParseArgs([]string{"-e"}); err == nil {
		t.Fatalf("expected an error when -e has no following source argument")
	}
}

func TestParseUnknownFlagIsError(t *testing.T) {
	if _, err := ParseArgs([]string{"--bogus", "script.oak"}); err == nil {
		t.Fatalf("expected an error for an unrecognized flag")
	}
}
