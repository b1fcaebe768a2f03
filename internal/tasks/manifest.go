package tasks

import (
	"fmt"

	"github.com/BurntSushi/toml"

	"github.com/desertthunder/nodeq/internal/models"
	"github.com/desertthunder/nodeq/internal/shared"
)

// Manifest describes one collision workflow in TOML:
//
//	operation = "copy"
//	parent = "h-dest"
//	existing = ["report.pdf", "photos"]
//
//	[[collision]]
//	name = "report.pdf"
//	handle = "h-existing"
//	node = "h-source"
//	choice = "rename"
type Manifest struct {
	Operation  string          `toml:"operation"`
	Parent     string          `toml:"parent"`
	Existing   []string        `toml:"existing"`
	Deferred   bool            `toml:"deferred"`
	Collisions []CollisionSpec `toml:"collision"`
}

// CollisionSpec is one [[collision]] table.
type CollisionSpec struct {
	Name       string `toml:"name"`
	Handle     string `toml:"handle"` // Existing node at the destination
	Node       string `toml:"node"`   // Source node for copy, move and import
	Folder     bool   `toml:"folder"`
	LocalPath  string `toml:"local_path"`
	Size       int64  `toml:"size"`
	ChatID     string `toml:"chat_id"`
	MessageID  string `toml:"message_id"`
	Choice     string `toml:"choice"`      // Optional per-item decision
	RenameName string `toml:"rename_name"` // Optional explicit target name
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	var m Manifest
	if _, err := toml.DecodeFile(path, &m); err != nil {
		return nil, fmt.Errorf("%w: failed to parse manifest: %v", shared.ErrInvalidInput, err)
	}
	if _, err := m.Op(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Op parses the manifest operation.
func (m *Manifest) Op() (models.Operation, error) {
	op, err := models.ParseOperation(m.Operation)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return op, nil
}

// Items converts every collision into a pending item along with the explicit choices keyed by item id.
func (m *Manifest) Items() ([]models.PendingItem, map[string]models.Choice, error) {
	op, err := m.Op()
	if err != nil {
		return nil, nil, err
	}

	items := make([]models.PendingItem, 0, len(m.Collisions))
	choices := make(map[string]models.Choice)

	for i, cs := range m.Collisions {
		c := cs.collision(op, m.Parent)
		if err := c.Validate(); err != nil {
			return nil, nil, fmt.Errorf("%w: collision %d: %v", shared.ErrInvalidInput, i+1, err)
		}

		item := c.PendingItem()
		item.RenameName = cs.RenameName
		items = append(items, item)

		if cs.Choice != "" {
			choice, err := models.ParseChoice(cs.Choice)
			if err != nil {
				return nil, nil, fmt.Errorf("%w: collision %d: %v", shared.ErrInvalidInput, i+1, err)
			}
			choices[item.ID] = choice
		}
	}

	return items, choices, nil
}

func (s CollisionSpec) collision(op models.Operation, parent string) models.Collision {
	switch {
	case op == models.OperationUpload:
		return models.NewUploadCollision(s.Handle, s.Name, parent, s.LocalPath, s.Size)
	case op == models.OperationMove:
		return models.NewMovementCollision(s.Handle, s.Name, parent, s.Node, !s.Folder)
	case s.ChatID != "":
		return models.NewImportCollision(s.Handle, s.Name, parent, s.ChatID, s.MessageID, s.Node)
	default:
		return models.NewCopyCollision(s.Handle, s.Name, parent, s.Node, !s.Folder)
	}
}
