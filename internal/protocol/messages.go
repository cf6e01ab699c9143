// Package protocol defines the messages exchanged between the host and the
// rendering surface, their JSON codec and the transports that carry them.
//
// Each direction has a closed set of message types. A message travels as a
// JSON object whose "command" field names its type; the remaining fields
// are the message's own.
package protocol

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/Benny93/graphpanel/internal/graph"
)

// Command names on the wire.
const (
	CmdGo            = "go"
	CmdImportJSON    = "importJson"
	CmdExportImage   = "exportImage"
	CmdExportJSON    = "exportJson"
	CmdCheckRendered = "checkCytoscapeRendered"

	CmdReady          = "ready"
	CmdGoToFile       = "goToFile"
	CmdSaveImage      = "saveImage"
	CmdSaveJSON       = "saveJson"
	CmdRenderedResult = "cytoscapeRenderedResult"
)

// HostMessage is a message sent from the host to the surface.
type HostMessage interface {
	Command() string
	hostMessage()
}

// SurfaceMessage is a message sent from the surface to the host.
type SurfaceMessage interface {
	Command() string
	surfaceMessage()
}

// Go asks the surface to build and lay out a fresh graph.
type Go struct {
	Data     []graph.InputNode `json:"data"`
	Settings graph.Settings    `json:"settings"`
}

// ImportJSON asks the surface to show an exported snapshot verbatim.
type ImportJSON struct {
	JSON     string         `json:"json"`
	Settings graph.Settings `json:"settings"`
}

// ExportImage asks for a PNG of the current graph.
type ExportImage struct {
	// PixelRatio scales the export; zero means the surface default.
	PixelRatio float64 `json:"pixelRatio,omitempty"`
}

// ExportJSON asks for a snapshot of the current graph.
type ExportJSON struct{}

// CheckRendered probes whether the surface shows any element.
type CheckRendered struct{}

func (Go) Command() string            { return CmdGo }
func (ImportJSON) Command() string    { return CmdImportJSON }
func (ExportImage) Command() string   { return CmdExportImage }
func (ExportJSON) Command() string    { return CmdExportJSON }
func (CheckRendered) Command() string { return CmdCheckRendered }

func (Go) hostMessage()            {}
func (ImportJSON) hostMessage()    {}
func (ExportImage) hostMessage()   {}
func (ExportJSON) hostMessage()    {}
func (CheckRendered) hostMessage() {}

// Ready is posted once when the surface finished bootstrapping.
type Ready struct{}

// GoToFile requests navigation to a source position.
type GoToFile struct {
	URI    string `json:"uri"`
	Line   int    `json:"line"`
	Column int    `json:"column"`
}

// SaveImage carries an exported PNG, base64 encoded.
type SaveImage struct {
	Image string `json:"image"`
}

// SaveJSON carries an exported snapshot.
type SaveJSON struct {
	JSON string `json:"json"`
}

// RenderedResult answers CheckRendered.
type RenderedResult struct {
	Rendered bool `json:"rendered"`
}

func (Ready) Command() string          { return CmdReady }
func (GoToFile) Command() string       { return CmdGoToFile }
func (SaveImage) Command() string      { return CmdSaveImage }
func (SaveJSON) Command() string       { return CmdSaveJSON }
func (RenderedResult) Command() string { return CmdRenderedResult }

func (Ready) surfaceMessage()          {}
func (GoToFile) surfaceMessage()       {}
func (SaveImage) surfaceMessage()      {}
func (SaveJSON) surfaceMessage()       {}
func (RenderedResult) surfaceMessage() {}

const dataURLPrefix = "data:image/png;base64,"

// NewSaveImage encodes png bytes for transport.
func NewSaveImage(png []byte) SaveImage {
	return SaveImage{Image: base64.StdEncoding.EncodeToString(png)}
}

// PNG decodes the image payload. A data URL prefix is accepted.
func (m SaveImage) PNG() ([]byte, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(m.Image, dataURLPrefix))
	if err != nil {
		return nil, fmt.Errorf("decoding image payload: %w", err)
	}
	return data, nil
}
