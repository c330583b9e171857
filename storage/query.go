package storage

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"taskzen-api/domain"
)

// emailRegexFilter builds a case-insensitive substring match. The fragment
// is escaped so user input cannot smuggle regex metacharacters into the
// query.
func emailRegexFilter(fragment string) bson.M {
	return bson.M{"$regex": regexp.QuoteMeta(fragment), "$options": "i"}
}

// buildTaskFilter translates a TaskQuery into a MongoDB filter document
// scoped to one owner.
func buildTaskFilter(owner primitive.ObjectID, q domain.TaskQuery) bson.M {
	filter := bson.M{"owner": owner}

	if q.Status != "" {
		filter["status"] = string(q.Status)
	} else if q.NotCompleted {
		filter["status"] = bson.M{"$ne": string(domain.StatusCompleted)}
	}
	if q.Priority != "" {
		filter["priority"] = string(q.Priority)
	}
	if q.Flagged != nil {
		filter["flagged"] = *q.Flagged
	}
	if q.Assigned {
		filter["assignedBy"] = bson.M{"$exists": true, "$ne": nil}
	}
	if q.Search != "" {
		re := bson.M{"$regex": regexp.QuoteMeta(q.Search), "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
		}
	}

	due := bson.M{}
	if q.DueAfter != nil {
		due["$gt"] = *q.DueAfter
	}
	if q.DueFrom != nil {
		due["$gte"] = *q.DueFrom
	}
	if q.DueBefore != nil {
		due["$lt"] = *q.DueBefore
	}
	if len(due) > 0 {
		filter["dueDate"] = due
	}
	return filter
}
