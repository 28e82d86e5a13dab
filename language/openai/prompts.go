package openai

import (
	"fmt"
	"strings"
)

// entityTypes are the categories the hosted annotation API assigns. The
// model must pick from the same set so both backends stay interchangeable.
var entityTypes = []string{
	"PERSON",
	"LOCATION",
	"ORGANIZATION",
	"EVENT",
	"WORK_OF_ART",
	"CONSUMER_GOOD",
	"OTHER",
}

const sentimentResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "documentSentiment": {
      "type": "object",
      "properties": {
        "score": {"type": "number", "minimum": -1, "maximum": 1},
        "magnitude": {"type": "number", "minimum": 0}
      },
      "required": ["score", "magnitude"]
    },
    "language": {"type": "string"}
  },
  "required": ["documentSentiment"],
  "additionalProperties": false
}`

const entityResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "entities": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "name": {"type": "string"},
          "type": {"type": "string"},
          "salience": {"type": "number", "minimum": 0, "maximum": 1},
          "sentiment": {
            "type": "object",
            "properties": {
              "score": {"type": "number", "minimum": -1, "maximum": 1},
              "magnitude": {"type": "number", "minimum": 0}
            },
            "required": ["score", "magnitude"]
          }
        },
        "required": ["name", "type", "sentiment"]
      }
    },
    "language": {"type": "string"}
  },
  "required": ["entities"],
  "additionalProperties": false
}`

const sentimentPromptTemplate = `Analyze the overall sentiment of the given text and return it as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- score ranges from -1.0 (clearly negative) to 1.0 (clearly positive); use 0 for neutral or mixed text.
- magnitude is non-negative and reflects the overall strength of emotion, regardless of its direction.
- language is the two-letter code of the text's language.
- The JSON must parse without errors: no trailing commas, no extra keys, no text outside the object.

Example:
Input: "The bank closed my account without warning and kept my deposit."
Output:
{"documentSentiment":{"score":-0.8,"magnitude":1.6},"language":"en"}`

const entityPromptTemplate = `Extract the entities mentioned in the given text and the sentiment expressed toward each one, as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- type must be one of: %s.
- salience ranges from 0.0 to 1.0 and reflects how central the entity is to the text.
- sentiment.score ranges from -1.0 to 1.0 and reflects feeling toward that entity, not the whole text.
- Return an empty entities list when the text names nothing; never invent entities.
- The JSON must parse without errors: no trailing commas, no extra keys, no text outside the object.

Example:
Input: "The new store on Grand Avenue is great, but parking there is a nightmare."
Output:
{"entities":[{"name":"store","type":"LOCATION","salience":0.7,"sentiment":{"score":0.8,"magnitude":0.8}},{"name":"Grand Avenue","type":"LOCATION","salience":0.2,"sentiment":{"score":0.0,"magnitude":0.0}},{"name":"parking","type":"OTHER","salience":0.1,"sentiment":{"score":-0.9,"magnitude":0.9}}],"language":"en"}`

func sentimentPrompt() string {
	return fmt.Sprintf(sentimentPromptTemplate, sentimentResponseSchema)
}

func entityPrompt() string {
	return fmt.Sprintf(entityPromptTemplate, entityResponseSchema, strings.Join(entityTypes, ", "))
}
