// Package document is the default catdb engine: a generic Document stored
// as JSON and authored as JSON, JSONC or YAML.
//
//	{
//	  "name": "Lion",
//	  "categories": ["BigCatCategory"],
//	  "properties": {"legs": 4}
//	}
package document
