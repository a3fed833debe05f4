package pack

import (
	"archive/zip"
	"bytes"
	"context"

	"github.com/Navl-bm/go-oficios/internal/contract"
)

// Archive пишет каждый документ отдельной записью oficio_<rfc>.<ext>.
// При совпадении RFC более поздняя запись заменяет раннюю.
type Archive struct {
	Format    string
	Converter contract.Converter
}

func (a *Archive) Pack(ctx context.Context, items []Item) (*Artifact, error) {
	if len(items) == 0 {
		return nil, contract.Errorf(contract.ErrValidation, nil, "нет документов")
	}

	var names []string
	entries := make(map[string][]byte)
	for _, it := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var data []byte
		var err error
		if a.Format == "pdf" {
			data, err = convertItem(ctx, a.Converter, it)
		} else {
			data, err = it.Document.Bytes()
			if err != nil {
				err = contract.Errorf(contract.ErrIO, err, "упаковка docx %s", it.RFC)
			}
		}
		if err != nil {
			return nil, err
		}

		name := EntryName(it.RFC, a.Format)
		if _, ok := entries[name]; !ok {
			names = append(names, name)
		}
		entries[name] = data
	}

	var buf bytes.Buffer
	writer := zip.NewWriter(&buf)
	for _, name := range names {
		entry, err := writer.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return nil, contract.Errorf(contract.ErrIO, err, "%s", name)
		}
		if _, err := entry.Write(entries[name]); err != nil {
			return nil, contract.Errorf(contract.ErrIO, err, "%s", name)
		}
	}
	if err := writer.Close(); err != nil {
		return nil, contract.Errorf(contract.ErrIO, err, "zip")
	}
	return &Artifact{Ext: "zip", Data: buf.Bytes(), Entries: names}, nil
}
