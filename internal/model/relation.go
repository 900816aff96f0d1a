// internal/model/relation.go
package model

import (
	"time"

	"github.com/google/uuid"
)

// RelationKind はエッジの種類です。
type RelationKind string

const (
	RelationTranslation      RelationKind = "translation"
	RelationSynonym          RelationKind = "synonym"
	RelationAntonym          RelationKind = "antonym"
	RelationSimilar          RelationKind = "similar"
	RelationFormGroupMember  RelationKind = "form-group-member"
	RelationDefinition       RelationKind = "definition"
	RelationUsageExample     RelationKind = "usage-example"
	RelationImage            RelationKind = "image"
	RelationQuote            RelationKind = "quote"
	RelationCollectionMember RelationKind = "collection-member"
)

// AllRelationKinds は定義済みの全種類です。
var AllRelationKinds = []RelationKind{
	RelationTranslation,
	RelationSynonym,
	RelationAntonym,
	RelationSimilar,
	RelationFormGroupMember,
	RelationDefinition,
	RelationUsageExample,
	RelationImage,
	RelationQuote,
	RelationCollectionMember,
}

func (k RelationKind) IsValid() bool {
	for _, v := range AllRelationKinds {
		if k == v {
			return true
		}
	}
	return false
}

// IsSymmetric は一度だけ保存して両方向から読む種類かどうかを返します。
func (k RelationKind) IsSymmetric() bool {
	switch k {
	case RelationSynonym, RelationAntonym, RelationSimilar, RelationTranslation:
		return true
	}
	return false
}

// IsAttribute は単語からコンテンツノードへ向かう属性エッジかどうかを返します。
func (k RelationKind) IsAttribute() bool {
	switch k {
	case RelationDefinition, RelationUsageExample, RelationImage, RelationQuote:
		return true
	}
	return false
}

// ContentType は属性エッジの先にあるノードの WordType です。属性でなければ空文字。
func (k RelationKind) ContentType() WordType {
	switch k {
	case RelationDefinition:
		return WordTypeDefinition
	case RelationUsageExample:
		return WordTypeUsageExample
	case RelationImage:
		return WordTypeImage
	case RelationQuote:
		return WordTypeQuote
	}
	return ""
}

// RelationEdge は2つのノード間の型付きリンクです。
// 対称な種類は SourceWordID < TargetWordID (文字列比較) に正規化して保存します。
type RelationEdge struct {
	EdgeID         uuid.UUID    `gorm:"type:uuid;primaryKey" json:"edge_id"`
	SourceWordID   uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_edge_source_target_kind;index:idx_edge_source_kind" json:"source_word_id"`
	TargetWordID   uuid.UUID    `gorm:"type:uuid;not null;uniqueIndex:idx_edge_source_target_kind;index:idx_edge_target_kind" json:"target_word_id"`
	Kind           RelationKind `gorm:"type:varchar(32);not null;uniqueIndex:idx_edge_source_target_kind;index:idx_edge_source_kind;index:idx_edge_target_kind" json:"kind"`
	TargetLanguage string       `gorm:"type:varchar(16)" json:"target_language,omitempty"` // translation のみ
	Rank           int          `gorm:"column:position;not null;default:0" json:"rank"`                    // collection-member の並び順
	Note           string       `json:"note,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

func (RelationEdge) TableName() string {
	return "relation_edges"
}

// CanonicalPair は対称な種類のとき小さい方の ID を先にして返します。
func CanonicalPair(kind RelationKind, source, target uuid.UUID) (uuid.UUID, uuid.UUID) {
	if kind.IsSymmetric() && target.String() < source.String() {
		return target, source
	}
	return source, target
}

// Normalize は対称エッジの向きを正規化します。
func (e *RelationEdge) Normalize() {
	e.SourceWordID, e.TargetWordID = CanonicalPair(e.Kind, e.SourceWordID, e.TargetWordID)
}

// OtherEnd は wordID から見た反対側のノードを返します。
func (e *RelationEdge) OtherEnd(wordID uuid.UUID) uuid.UUID {
	if e.SourceWordID == wordID {
		return e.TargetWordID
	}
	return e.SourceWordID
}
