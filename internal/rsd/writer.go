package rsd

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/beevik/etree"

	"github.com/kyleking/xu-rsd-gen/internal/errors"
)

const (
	dirPerm  = 0755
	filePerm = 0644

	xmlDeclaration = `version="1.0" encoding="UTF-8"`
)

// WriteDocument serializes doc to path with an XML declaration, creating
// missing parent directories. An existing file is overwritten.
func WriteDocument(doc *etree.Document, path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return errors.Wrapf(err, errors.ErrTypeFileSystem, "failed to create directory %s", dir)
	}

	ensureDeclaration(doc)

	data, err := doc.WriteToBytes()
	if err != nil {
		return errors.Wrapf(err, errors.ErrTypeInternal, "failed to serialize %s", path)
	}

	if err := os.WriteFile(path, data, filePerm); err != nil {
		return errors.Wrapf(err, errors.ErrTypeFileSystem, "failed to write %s", path)
	}

	return nil
}

// ensureDeclaration prepends <?xml ...?> unless the document already starts
// with one
func ensureDeclaration(doc *etree.Document) {
scan:
	for _, token := range doc.Child {
		switch t := token.(type) {
		case *etree.ProcInst:
			if t.Target == "xml" {
				return
			}

			break scan
		case *etree.CharData:
			if strings.TrimSpace(t.Data) != "" {
				break scan
			}
		default:
			break scan
		}
	}

	doc.InsertChildAt(0, etree.NewProcInst("xml", xmlDeclaration))
	doc.InsertChildAt(1, etree.NewText("\n"))
}
