package models

import "fmt"

// CollisionVariant is the discriminant of a [Collision].
type CollisionVariant int

const (
	VariantUpload CollisionVariant = iota
	VariantCopy
	VariantMovement
	VariantImport
)

func (v CollisionVariant) String() string {
	switch v {
	case VariantUpload:
		return "upload"
	case VariantCopy:
		return "copy"
	case VariantMovement:
		return "movement"
	case VariantImport:
		return "import"
	default:
		return ""
	}
}

// Collision describes a conflict between an item being written and an existing node
// of the same name at the destination. Exactly one of Upload, Copy, Movement or Import
// is set, as selected by Variant.
type Collision struct {
	Variant         CollisionVariant
	CollisionHandle string // Existing node at the destination
	Name            string
	IsFile          bool
	ParentHandle    string

	Upload   *UploadSource
	Copy     *NodeSource
	Movement *NodeSource
	Import   *ImportSource
}

// UploadSource is a local file waiting to be uploaded.
type UploadSource struct {
	LocalPath string
	Size      int64
}

// NodeSource is an existing node being copied or moved.
type NodeSource struct {
	NodeHandle string
}

// ImportSource is a node attached to a chat message being imported into the drive.
type ImportSource struct {
	ChatID     string
	MessageID  string
	NodeHandle string
}

// NewUploadCollision builds the upload variant.
func NewUploadCollision(collisionHandle, name, parentHandle, localPath string, size int64) Collision {
	return Collision{
		Variant:         VariantUpload,
		CollisionHandle: collisionHandle,
		Name:            name,
		IsFile:          true,
		ParentHandle:    parentHandle,
		Upload:          &UploadSource{LocalPath: localPath, Size: size},
	}
}

// NewCopyCollision builds the copy variant.
func NewCopyCollision(collisionHandle, name, parentHandle, nodeHandle string, isFile bool) Collision {
	return Collision{
		Variant:         VariantCopy,
		CollisionHandle: collisionHandle,
		Name:            name,
		IsFile:          isFile,
		ParentHandle:    parentHandle,
		Copy:            &NodeSource{NodeHandle: nodeHandle},
	}
}

// NewMovementCollision builds the movement variant.
func NewMovementCollision(collisionHandle, name, parentHandle, nodeHandle string, isFile bool) Collision {
	return Collision{
		Variant:         VariantMovement,
		CollisionHandle: collisionHandle,
		Name:            name,
		IsFile:          isFile,
		ParentHandle:    parentHandle,
		Movement:        &NodeSource{NodeHandle: nodeHandle},
	}
}

// NewImportCollision builds the chat import variant. Imported nodes are always files.
func NewImportCollision(collisionHandle, name, parentHandle, chatID, messageID, nodeHandle string) Collision {
	return Collision{
		Variant:         VariantImport,
		CollisionHandle: collisionHandle,
		Name:            name,
		IsFile:          true,
		ParentHandle:    parentHandle,
		Import:          &ImportSource{ChatID: chatID, MessageID: messageID, NodeHandle: nodeHandle},
	}
}

// Operation maps the variant to the external action that resolves it.
// Chat imports are copies into the drive.
func (c Collision) Operation() Operation {
	switch c.Variant {
	case VariantCopy, VariantImport:
		return OperationCopy
	case VariantMovement:
		return OperationMove
	default:
		return OperationUpload
	}
}

// SourceID returns the identifier of the item being written: the local path for uploads,
// the node handle otherwise.
func (c Collision) SourceID() string {
	switch c.Variant {
	case VariantUpload:
		if c.Upload != nil {
			return c.Upload.LocalPath
		}
	case VariantCopy:
		if c.Copy != nil {
			return c.Copy.NodeHandle
		}
	case VariantMovement:
		if c.Movement != nil {
			return c.Movement.NodeHandle
		}
	case VariantImport:
		if c.Import != nil {
			return c.Import.NodeHandle
		}
	}
	return ""
}

// Validate checks that the payload matching Variant is present.
func (c Collision) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("collision name is required")
	}
	if c.ParentHandle == "" {
		return fmt.Errorf("collision %q: parent handle is required", c.Name)
	}

	var ok bool
	switch c.Variant {
	case VariantUpload:
		ok = c.Upload != nil && c.Upload.LocalPath != ""
	case VariantCopy:
		ok = c.Copy != nil && c.Copy.NodeHandle != ""
	case VariantMovement:
		ok = c.Movement != nil && c.Movement.NodeHandle != ""
	case VariantImport:
		ok = c.Import != nil && c.Import.ChatID != "" && c.Import.MessageID != "" && c.Import.NodeHandle != ""
	}
	if !ok {
		return fmt.Errorf("collision %q: missing %s source", c.Name, c.Variant)
	}

	return nil
}

// PendingItem wraps the collision for the queue. The id is "<variant>:<source id>" so the
// same node colliding through two workflows never shares an id.
func (c Collision) PendingItem() PendingItem {
	return PendingItem{
		ID:           c.Variant.String() + ":" + c.SourceID(),
		Kind:         KindOf(c.IsFile),
		SourceRef:    c,
		DisplayLabel: c.Name,
	}
}
