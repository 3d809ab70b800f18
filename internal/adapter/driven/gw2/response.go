package gw2

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/ericfisherdev/vaultpanel/internal/domain/port/driven"
)

// minObjectives is the smallest objectives array the API ever returns for a
// valid account; anything shorter is treated as a malformed response.
const minObjectives = 4

// Objective is one entry of a Wizard's Vault objectives array.
type Objective struct {
	ID               int
	Title            string
	Track            string
	Acclaim          int
	ProgressCurrent  int
	ProgressComplete int
	Claimed          bool
}

// Response is a decoded Wizard's Vault endpoint payload. Meta fields are only
// meaningful when HasMetaData is true.
type Response struct {
	Objectives []Objective

	MetaProgressCurrent  int
	MetaProgressComplete int
	MetaRewardItemID     int
	MetaRewardAstral     int
	MetaRewardClaimed    bool
	HasMetaData          bool
}

var metaFields = []string{
	"meta_progress_current",
	"meta_progress_complete",
	"meta_reward_item_id",
	"meta_reward_astral",
	"meta_reward_claimed",
}

var objectiveFields = []string{
	"id",
	"title",
	"track",
	"acclaim",
	"progress_current",
	"progress_complete",
	"claimed",
}

// DecodeResponse parses a Wizard's Vault payload strictly. Unknown or duplicate
// fields, wrong primitive types, a missing objectives array, partial meta fields
// and arrays shorter than four entries all fail with driven.ErrResponseFormat.
func DecodeResponse(data []byte) (Response, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("{}")) {
		return Response{}, formatErr("empty response")
	}

	r := &reader{dec: json.NewDecoder(bytes.NewReader(trimmed))}
	r.dec.UseNumber()

	resp, err := r.response()
	if err != nil {
		return Response{}, err
	}

	if _, err := r.dec.Token(); !errors.Is(err, io.EOF) {
		return Response{}, formatErr("unexpected data after top-level object")
	}

	return resp, nil
}

func formatErr(format string, args ...any) error {
	return fmt.Errorf("%w: %s", driven.ErrResponseFormat, fmt.Sprintf(format, args...))
}

type reader struct {
	dec *json.Decoder
}

func (r *reader) response() (Response, error) {
	var resp Response

	if err := r.delim('{'); err != nil {
		return resp, err
	}

	seen := make(map[string]bool)
	for r.dec.More() {
		key, err := r.key(seen)
		if err != nil {
			return resp, err
		}

		switch key {
		case "objectives":
			resp.Objectives, err = r.objectives()
		case "meta_progress_current":
			resp.MetaProgressCurrent, err = r.readInt(key)
		case "meta_progress_complete":
			resp.MetaProgressComplete, err = r.readInt(key)
		case "meta_reward_item_id":
			resp.MetaRewardItemID, err = r.readInt(key)
		case "meta_reward_astral":
			resp.MetaRewardAstral, err = r.readInt(key)
		case "meta_reward_claimed":
			resp.MetaRewardClaimed, err = r.readBool(key)
		default:
			return resp, formatErr("unknown field %q", key)
		}
		if err != nil {
			return resp, err
		}
	}

	if err := r.delim('}'); err != nil {
		return resp, err
	}

	if !seen["objectives"] {
		return resp, formatErr("missing required field %q", "objectives")
	}

	var meta int
	for _, f := range metaFields {
		if seen[f] {
			meta++
		}
	}
	switch meta {
	case 0:
	case len(metaFields):
		resp.HasMetaData = true
	default:
		return resp, formatErr("incomplete meta data: %d of %d fields present", meta, len(metaFields))
	}

	if len(resp.Objectives) < minObjectives {
		return resp, formatErr("objectives array has %d entries, want at least %d", len(resp.Objectives), minObjectives)
	}

	return resp, nil
}

func (r *reader) objectives() ([]Objective, error) {
	if err := r.delim('['); err != nil {
		return nil, err
	}

	var out []Objective
	for r.dec.More() {
		o, err := r.objective()
		if err != nil {
			return nil, fmt.Errorf("objectives[%d]: %w", len(out), err)
		}
		out = append(out, o)
	}

	if err := r.delim(']'); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *reader) objective() (Objective, error) {
	var o Objective

	if err := r.delim('{'); err != nil {
		return o, err
	}

	seen := make(map[string]bool)
	for r.dec.More() {
		key, err := r.key(seen)
		if err != nil {
			return o, err
		}

		switch key {
		case "id":
			o.ID, err = r.readInt(key)
		case "title":
			o.Title, err = r.readString(key)
		case "track":
			o.Track, err = r.readString(key)
		case "acclaim":
			o.Acclaim, err = r.readInt(key)
		case "progress_current":
			o.ProgressCurrent, err = r.readInt(key)
		case "progress_complete":
			o.ProgressComplete, err = r.readInt(key)
		case "claimed":
			o.Claimed, err = r.readBool(key)
		default:
			return o, formatErr("unknown objective field %q", key)
		}
		if err != nil {
			return o, err
		}
	}

	if err := r.delim('}'); err != nil {
		return o, err
	}

	for _, f := range objectiveFields {
		if !seen[f] {
			return o, formatErr("missing required objective field %q", f)
		}
	}

	return o, nil
}

// key reads an object key and records it in seen, rejecting duplicates.
func (r *reader) key(seen map[string]bool) (string, error) {
	tok, err := r.token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", formatErr("expected object key, got %v", tok)
	}
	if seen[key] {
		return "", formatErr("duplicate field %q", key)
	}
	seen[key] = true
	return key, nil
}

func (r *reader) delim(want json.Delim) error {
	tok, err := r.token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return formatErr("expected %q, got %v", want, tok)
	}
	return nil
}

func (r *reader) readInt(field string) (int, error) {
	tok, err := r.token()
	if err != nil {
		return 0, err
	}
	num, ok := tok.(json.Number)
	if !ok {
		return 0, formatErr("field %q: expected integer, got %T", field, tok)
	}
	n, err := num.Int64()
	if err != nil || n > math.MaxInt32 || n < math.MinInt32 {
		return 0, formatErr("field %q: %s is not a 32-bit integer", field, num)
	}
	return int(n), nil
}

func (r *reader) readString(field string) (string, error) {
	tok, err := r.token()
	if err != nil {
		return "", err
	}
	s, ok := tok.(string)
	if !ok {
		return "", formatErr("field %q: expected string, got %T", field, tok)
	}
	return s, nil
}

func (r *reader) readBool(field string) (bool, error) {
	tok, err := r.token()
	if err != nil {
		return false, err
	}
	b, ok := tok.(bool)
	if !ok {
		return false, formatErr("field %q: expected boolean, got %T", field, tok)
	}
	return b, nil
}

func (r *reader) token() (json.Token, error) {
	tok, err := r.dec.Token()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, formatErr("unexpected end of input")
		}
		return nil, formatErr("%v", err)
	}
	return tok, nil
}
