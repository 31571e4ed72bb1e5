package models

import (
	"fmt"
	"sort"

	"gopkg.in/yaml.v2"
)

// PackageEntry: одна запись пакета для быстрого запуска/рестарта.
type PackageEntry struct {
	Owner       string  `yaml:"owner"`
	Public      string  `yaml:"public"`
	Secret      string  `yaml:"secret"`
	Password    string  `yaml:"password"`
	Sandbox     bool    `yaml:"sandbox"`
	ChatID      int64   `yaml:"chat_id"`
	Base        string  `yaml:"base"`
	Quote       string  `yaml:"quote"`
	YourBase    float64 `yaml:"your_base"`
	YourQuote   float64 `yaml:"your_quote"`
	MarginBase  float64 `yaml:"margin_base"`
	MarginQuote float64 `yaml:"margin_quote"`
}

type Package map[int]PackageEntry

func DecodePackage(data []byte) (Package, error) {
	pkg := Package{}
	if err := yaml.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("decode package: %w", err)
	}
	return pkg, nil
}

func (p Package) Encode() ([]byte, error) {
	return yaml.Marshal(p)
}

// Indexes: ключи по возрастанию, чтобы боты стартовали в стабильном порядке.
func (p Package) Indexes() []int {
	out := make([]int, 0, len(p))
	for k := range p {
		out = append(out, k)
	}
	sort.Ints(out)
	return out
}

func (e PackageEntry) Params(bypass bool) BotParams {
	return BotParams{
		Owner:  e.Owner,
		ChatID: e.ChatID,
		Pair:   NewPair(e.Quote, e.Base),
		Creds: Credentials{
			Key:        e.Public,
			Secret:     e.Secret,
			Passphrase: e.Password,
			Sandbox:    e.Sandbox,
		},
		YourBase:    e.YourBase,
		YourQuote:   e.YourQuote,
		MarginBase:  e.MarginBase,
		MarginQuote: e.MarginQuote,
		Bypass:      bypass,
	}
}
