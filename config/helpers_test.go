package config

import "gopkg.in/yaml.v3"

func unmarshalForTest(doc string, v any) error {
	return yaml.Unmarshal([]byte(doc), v)
}
