package config

import (
	"errors"
	"io/fs"
)

// Flag loads the configuration file specified on the command line into Config.
type Flag struct {
	File   string
	Config *Configuration
	IsSet  bool
}

func (f *Flag) Set(path string) error {
	f.File = path

	cfg, err := FromFile(path)
	if err != nil {
		return err
	}

	*f.Config = cfg
	f.IsSet = true

	return nil
}

func (f *Flag) String() string {
	return f.File
}

// IsFileFlag makes the file be loaded before the other flags are applied.
func (f *Flag) IsFileFlag() bool {
	return true
}

// LoadDefault loads the default configuration file into Config if it exists.
func LoadDefault(cfg *Configuration) error {
	file := DefaultFile()
	if file == "" {
		return nil
	}

	c, err := FromFile(file)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}

		return err
	}

	*cfg = c

	return nil
}
