package models

// Config is the root configuration stored in ~/.schemamirror/config.yaml
type Config struct {
	Snowflake    Snowflake     `yaml:"snowflake"`
	Environments []Environment `yaml:"environments"`
	Export       Export        `yaml:"export"`
}

// Snowflake holds the default connection settings
type Snowflake struct {
	Account   string `yaml:"account"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Role      string `yaml:"role"`
	Warehouse string `yaml:"warehouse"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
}

// Environment is a named connection override (dev, staging, prod)
type Environment struct {
	Name      string `yaml:"name"`
	Account   string `yaml:"account"`
	Username  string `yaml:"username"`
	Password  string `yaml:"password"`
	Role      string `yaml:"role"`
	Warehouse string `yaml:"warehouse"`
	Database  string `yaml:"database"`
	Schema    string `yaml:"schema"`
}

// Export holds report export settings
type Export struct {
	Directory string `yaml:"directory"`
}

// Environment returns the named environment, falling back to the default
// Snowflake block when name is empty. The second return reports whether a
// usable configuration was found.
func (c *Config) Environment(name string) (Snowflake, bool) {
	if name == "" {
		return c.Snowflake, c.Snowflake.Account != ""
	}
	for _, env := range c.Environments {
		if env.Name == name {
			return Snowflake{
				Account:   env.Account,
				Username:  env.Username,
				Password:  env.Password,
				Role:      env.Role,
				Warehouse: env.Warehouse,
				Database:  env.Database,
				Schema:    env.Schema,
			}, true
		}
	}
	return Snowflake{}, false
}
