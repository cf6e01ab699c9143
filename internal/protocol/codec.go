package protocol

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
)

var (
	// ErrUnknownCommand is returned when a message names no known type for
	// its direction.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrMalformed is returned when a message is not a JSON object.
	ErrMalformed = errors.New("malformed message")
)

// EncodeHost marshals a host message.
func EncodeHost(m HostMessage) ([]byte, error) {
	return encode(m.Command(), m)
}

// EncodeSurface marshals a surface message.
func EncodeSurface(m SurfaceMessage) ([]byte, error) {
	return encode(m.Command(), m)
}

// encode splices the command field in front of the message's own fields.
func encode(cmd string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", cmd, err)
	}
	name, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %w", cmd, err)
	}

	var buf bytes.Buffer
	buf.WriteString(`{"command":`)
	buf.Write(name)
	if rest := bytes.TrimSpace(body[1:]); !bytes.Equal(rest, []byte("}")) {
		buf.WriteByte(',')
		buf.Write(rest)
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

func command(data []byte) (string, error) {
	var env struct {
		Command string `json:"command"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return env.Command, nil
}

func decodeAs[T any](cmd string, data []byte) (T, error) {
	var m T
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("%w: %s: %v", ErrMalformed, cmd, err)
	}
	return m, nil
}

// DecodeHost parses a host message.
func DecodeHost(data []byte) (HostMessage, error) {
	cmd, err := command(data)
	if err != nil {
		return nil, err
	}
	switch cmd {
	case CmdGo:
		return decodeAs[Go](cmd, data)
	case CmdImportJSON:
		return decodeAs[ImportJSON](cmd, data)
	case CmdExportImage:
		return decodeAs[ExportImage](cmd, data)
	case CmdExportJSON:
		return ExportJSON{}, nil
	case CmdCheckRendered:
		return CheckRendered{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
}

// DecodeSurface parses a surface message.
func DecodeSurface(data []byte) (SurfaceMessage, error) {
	cmd, err := command(data)
	if err != nil {
		return nil, err
	}
	switch cmd {
	case CmdReady:
		return Ready{}, nil
	case CmdGoToFile:
		return decodeAs[GoToFile](cmd, data)
	case CmdSaveImage:
		return decodeAs[SaveImage](cmd, data)
	case CmdSaveJSON:
		return decodeAs[SaveJSON](cmd, data)
	case CmdRenderedResult:
		return decodeAs[RenderedResult](cmd, data)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}
}
