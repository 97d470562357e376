package validators

import "go.mongodb.org/mongo-driver/bson"

var NotificationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"user_id",
			"type",
			"title",
			"message",
			"created_at",
		},
		"properties": bson.M{
			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},
			"title": bson.M{
				"bsonType":  "string",
				"maxLength": 200,
			},
			"read_at": bson.M{
				"bsonType": "date",
			},
			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}

var PreferencesValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"preferences"},
		"properties": bson.M{
			"preferences": bson.M{
				"bsonType": "object",
				"additionalProperties": bson.M{
					"bsonType": "bool",
				},
			},
		},
	},
}
