package ubjson

import (
	"errors"
	"strings"
	"testing"
)

type objectBeforeEncode struct {
	Val string

	wasCalled bool
}

func (a *objectBeforeEncode) BeforeEncode() error {
	a.wasCalled = true
	return nil
}

func TestBeforeEncode(t *testing.T) {

	t.Parallel()

	var (
		input = objectBeforeEncode{
			Val: "Hello, World!",
		}
	)

	_, err := Marshal(&input)
	if err != nil {
		t.Error(err)
	}

	if !input.wasCalled {
		t.Errorf("expected method input.BeforeEncode() to be called during conversion")
	}
}

type objectAfterDecode struct {
	Val string

	wasCalled bool
}

func (a *objectAfterDecode) AfterDecode() error {
	a.wasCalled = true
	return nil
}

func TestAfterDecode(t *testing.T) {

	t.Parallel()

	var (
		input = objectAfterDecode{
			Val: "Hello, World!",
		}
		output objectAfterDecode
	)

	data, err := Marshal(input)
	if err != nil {
		t.Error(err)
	}

	err = Unmarshal(data, &output)
	if err != nil {
		t.Error(err)
	}

	if !output.wasCalled {
		t.Errorf("expected method output.AfterDecode() to be called after decoding")
	}

	if output.Val != input.Val {
		t.Errorf("expected output.Val to be %q, got %q", input.Val, output.Val)
	}
}

var errRejected = errors.New("rejected")

type objectRejecting struct {
	Val string
}

func (objectRejecting) AfterDecode() error {
	return errRejected
}

func TestAfterDecodeError(t *testing.T) {

	t.Parallel()

	data, err := Marshal(objectRejecting{Val: "x"})
	if err != nil {
		t.Fatal(err)
	}

	var output objectRejecting

	if err := Unmarshal(data, &output); !errors.Is(err, errRejected) {
		t.Errorf("expected AfterDecode error to propagate, got %v", err)
	}
}

// upperString is stored upper-cased on the wire.
type upperString string

func (s upperString) MarshalUBJSON() (Value, error) {
	return String(strings.ToUpper(string(s))), nil
}

func (s *upperString) UnmarshalUBJSON(v Value) error {
	text, ok := v.AsString()
	if !ok {
		return errors.New("upperString: not a string")
	}
	*s = upperString(strings.ToLower(text))
	return nil
}

func TestValueMarshaler(t *testing.T) {

	t.Parallel()

	type holder struct {
		Name upperString
	}

	value, err := FromGo(holder{Name: "quiet"})
	if err != nil {
		t.Fatal(err)
	}

	if name, _ := value.Get("Name"); !name.Equal(String("QUIET")) {
		t.Errorf("expected MarshalUBJSON to be used, got %s", Diagnose(name))
	}

	var output holder

	if err := Into(value, &output); err != nil {
		t.Fatal(err)
	}

	if output.Name != "quiet" {
		t.Errorf("expected UnmarshalUBJSON to be used, got %q", output.Name)
	}
}
