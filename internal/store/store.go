// Package store provides database access for the assistant's memory and
// recorded actions.
package store

import (
	"context"
	"time"

	"github.com/rudransh-shrivastava/peer-assist/internal/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MemoryStore struct {
	db *gorm.DB
}

func NewMemoryStore(gormDB *gorm.DB) *MemoryStore {
	return &MemoryStore{db: gormDB}
}

// AddDocument appends a document and its chunks in one transaction.
func (ms *MemoryStore) AddDocument(ctx context.Context, source, kind string, chunks []string) (db.Document, error) {
	doc := db.Document{Source: source, Kind: kind, CreatedAt: time.Now().Unix()}

	err := ms.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&doc).Error; err != nil {
			return err
		}
		if len(chunks) == 0 {
			return nil
		}

		rows := make([]db.Chunk, 0, len(chunks))
		for i, content := range chunks {
			rows = append(rows, db.Chunk{DocumentID: doc.ID, Position: i, Content: content})
		}
		return tx.Omit(clause.Associations).Create(&rows).Error
	})
	if err != nil {
		return db.Document{}, err
	}
	return doc, nil
}

func (ms *MemoryStore) GetChunks(ctx context.Context) ([]db.Chunk, error) {
	var chunks []db.Chunk
	err := ms.db.WithContext(ctx).Preload("Document").Order("id").Find(&chunks).Error
	return chunks, err
}

func (ms *MemoryStore) GetDocuments(ctx context.Context) ([]db.Document, error) {
	var docs []db.Document
	err := ms.db.WithContext(ctx).Order("id").Find(&docs).Error
	return docs, err
}

func (ms *MemoryStore) CountChunks(ctx context.Context) (int64, error) {
	var n int64
	err := ms.db.WithContext(ctx).Model(&db.Chunk{}).Count(&n).Error
	return n, err
}

type ActionStore struct {
	db *gorm.DB
}

func NewActionStore(gormDB *gorm.DB) *ActionStore {
	return &ActionStore{db: gormDB}
}

func (as *ActionStore) CreateAction(ctx context.Context, kind, details, text string) (db.Action, error) {
	action := db.Action{Kind: kind, Details: details, Text: text, CreatedAt: time.Now().Unix()}
	if err := as.db.WithContext(ctx).Create(&action).Error; err != nil {
		return db.Action{}, err
	}
	return action, nil
}

func (as *ActionStore) GetActions(ctx context.Context) ([]db.Action, error) {
	var actions []db.Action
	err := as.db.WithContext(ctx).Order("id").Find(&actions).Error
	return actions, err
}
