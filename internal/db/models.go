package db

type Document struct {
	ID        uint   `gorm:"primaryKey"`
	Source    string `gorm:"index"`
	Kind      string
	CreatedAt int64
}

type Chunk struct {
	ID         uint     `gorm:"primaryKey"`
	DocumentID uint     `gorm:"not null;index"`
	Document   Document `gorm:"constraint:OnDelete:CASCADE"`
	Position   int
	Content    string
}

type Action struct {
	ID        uint `gorm:"primaryKey"`
	Kind      string
	Details   string
	Text      string
	CreatedAt int64
}
