package mongo

import (
	"encoding/json"
	"fmt"

	"bilgi-quiz-service/internal/domain"
	"bilgi-quiz-service/internal/stats"
	"go.mongodb.org/mongo-driver/bson"
)

// fromJSON turns a JSON object into a BSON document, keeping key order.
func fromJSON(data json.RawMessage) (bson.D, error) {
	var doc bson.D
	if err := bson.UnmarshalExtJSON(data, false, &doc); err != nil {
		return nil, fmt.Errorf("question body is not a JSON object: %w", err)
	}
	return doc, nil
}

// toJSON renders a stored document as relaxed extended JSON, which is plain
// JSON for the strings, numbers, booleans and arrays question records use.
func toJSON(doc bson.D) (json.RawMessage, error) {
	if doc == nil {
		doc = bson.D{}
	}
	out, err := bson.MarshalExtJSON(doc, false, false)
	if err != nil {
		return nil, fmt.Errorf("render document: %w", err)
	}
	return out, nil
}

func encodeStatistics(st domain.UserStatistics) (bson.D, error) {
	data, err := json.Marshal(st)
	if err != nil {
		return nil, fmt.Errorf("encode statistics: %w", err)
	}
	return fromJSON(data)
}

func decodeStatistics(doc bson.D) (*domain.UserStatistics, error) {
	data, err := toJSON(doc)
	if err != nil {
		return nil, err
	}
	st := stats.Decode(data)
	return &st, nil
}
