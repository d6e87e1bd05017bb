package ptsl

import (
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// requestHeader mirrors ptsl.RequestHeader.
type requestHeader struct {
	TaskID          string
	Command         Command
	Version         int32
	SessionID       string
	VersionMinor    int32
	VersionRevision int32
}

// response mirrors ptsl.Response with its header flattened.
type response struct {
	TaskID    string
	Command   Command
	Status    TaskStatus
	Progress  int32
	BodyJSON  string
	ErrorJSON string
}

func encodeRequest(h requestHeader, body string) []byte {
	var hdr []byte
	if h.TaskID != "" {
		hdr = protowire.AppendTag(hdr, 1, protowire.BytesType)
		hdr = protowire.AppendString(hdr, h.TaskID)
	}
	hdr = protowire.AppendTag(hdr, 2, protowire.VarintType)
	hdr = protowire.AppendVarint(hdr, uint64(h.Command))
	hdr = protowire.AppendTag(hdr, 3, protowire.VarintType)
	hdr = protowire.AppendVarint(hdr, uint64(h.Version))
	if h.SessionID != "" {
		hdr = protowire.AppendTag(hdr, 4, protowire.BytesType)
		hdr = protowire.AppendString(hdr, h.SessionID)
	}
	hdr = protowire.AppendTag(hdr, 5, protowire.VarintType)
	hdr = protowire.AppendVarint(hdr, uint64(h.VersionMinor))
	hdr = protowire.AppendTag(hdr, 6, protowire.VarintType)
	hdr = protowire.AppendVarint(hdr, uint64(h.VersionRevision))

	var out []byte
	out = protowire.AppendTag(out, 1, protowire.BytesType)
	out = protowire.AppendBytes(out, hdr)
	if body != "" {
		out = protowire.AppendTag(out, 2, protowire.BytesType)
		out = protowire.AppendString(out, body)
	}
	return out
}

func decodeRequest(data []byte) (requestHeader, string, error) {
	var (
		h    requestHeader
		body string
	)
	err := walkFields(data, func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			return walkFields(v, func(num protowire.Number, _ protowire.Type, v []byte, n uint64) error {
				switch num {
				case 1:
					h.TaskID = string(v)
				case 2:
					h.Command = Command(n)
				case 3:
					h.Version = int32(n)
				case 4:
					h.SessionID = string(v)
				case 5:
					h.VersionMinor = int32(n)
				case 6:
					h.VersionRevision = int32(n)
				}
				return nil
			})
		case 2:
			body = string(v)
		}
		return nil
	})
	return h, body, err
}

func encodeResponse(r response) []byte {
	var hdr []byte
	if r.TaskID != "" {
		hdr = protowire.AppendTag(hdr, 1, protowire.BytesType)
		hdr = protowire.AppendString(hdr, r.TaskID)
	}
	hdr = protowire.AppendTag(hdr, 2, protowire.VarintType)
	hdr = protowire.AppendVarint(hdr, uint64(r.Command))
	hdr = protowire.AppendTag(hdr, 3, protowire.VarintType)
	hdr = protowire.AppendVarint(hdr, uint64(r.Status))
	hdr = protowire.AppendTag(hdr, 4, protowire.VarintType)
	hdr = protowire.AppendVarint(hdr, uint64(r.Progress))

	var out []byte
	out = protowire.AppendTag(out, 1, protowire.BytesType)
	out = protowire.AppendBytes(out, hdr)
	if r.BodyJSON != "" {
		out = protowire.AppendTag(out, 2, protowire.BytesType)
		out = protowire.AppendString(out, r.BodyJSON)
	}
	if r.ErrorJSON != "" {
		out = protowire.AppendTag(out, 3, protowire.BytesType)
		out = protowire.AppendString(out, r.ErrorJSON)
	}
	return out
}

func decodeResponse(data []byte) (response, error) {
	var r response
	err := walkFields(data, func(num protowire.Number, _ protowire.Type, v []byte, n uint64) error {
		switch num {
		case 1:
			return walkFields(v, func(num protowire.Number, _ protowire.Type, v []byte, n uint64) error {
				switch num {
				case 1:
					r.TaskID = string(v)
				case 2:
					r.Command = Command(n)
				case 3:
					r.Status = TaskStatus(n)
				case 4:
					r.Progress = int32(n)
				}
				return nil
			})
		case 2:
			r.BodyJSON = string(v)
		case 3:
			r.ErrorJSON = string(v)
		}
		return nil
	})
	return r, err
}

// walkFields visits each top-level field. Length-delimited values arrive
// in v, varints in n. Other wire types are skipped.
func walkFields(data []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, n uint64) error) error {
	for len(data) > 0 {
		num, typ, tagLen := protowire.ConsumeTag(data)
		if tagLen < 0 {
			return fmt.Errorf("decode ptsl tag: %w", protowire.ParseError(tagLen))
		}
		data = data[tagLen:]

		var (
			v   []byte
			n   uint64
			adv int
		)
		switch typ {
		case protowire.BytesType:
			v, adv = protowire.ConsumeBytes(data)
		case protowire.VarintType:
			n, adv = protowire.ConsumeVarint(data)
		default:
			adv = protowire.ConsumeFieldValue(num, typ, data)
		}
		if adv < 0 {
			return fmt.Errorf("decode ptsl field %d: %w", num, protowire.ParseError(adv))
		}
		data = data[adv:]

		if typ == protowire.BytesType || typ == protowire.VarintType {
			if err := fn(num, typ, v, n); err != nil {
				return err
			}
		}
	}
	return nil
}
