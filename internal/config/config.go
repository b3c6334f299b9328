package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

type Ldp struct {
	Address string `yaml:"address"`
	Port    string `yaml:"port"`
}

type Log struct {
	Path string `yaml:"path"`
	Name string `yaml:"name"`
}

type Metrics struct {
	Address string `yaml:"address"`
	Port    string `yaml:"port"`
}

type Gobgp struct {
	Address string `yaml:"address"`
	Port    string `yaml:"port"`
}

type Global struct {
	RouterID   string  `yaml:"router-id"`
	LabelSpace uint16  `yaml:"label-space"`
	Ldp        Ldp     `yaml:"ldp"`
	Log        Log     `yaml:"log"`
	Metrics    Metrics `yaml:"metrics"`
	Gobgp      Gobgp   `yaml:"gobgp"`
}

type Neighbor struct {
	LsrID        string `yaml:"lsr-id"`
	Address      string `yaml:"address"`
	LabelSpace   uint16 `yaml:"label-space"`
	MaxPDULength uint16 `yaml:"max-pdu-length"`
	Ipv4         bool   `yaml:"ipv4"`
	Ipv6         bool   `yaml:"ipv6"`
}

type Config struct {
	Global    Global     `yaml:"global"`
	Neighbors []Neighbor `yaml:"neighbors"`
}

func ReadConfigFile(configFile string) (Config, error) {
	c := new(Config)

	f, err := os.Open(configFile)
	if err != nil {
		return *c, err
	}
	defer f.Close()

	err = yaml.NewDecoder(f).Decode(&c)
	return *c, err
}
