package config

// LoadFromEnv reads the process environment. Development builds (-tags dev)
// first merge a local .env file.
func LoadFromEnv() (Config, error) {
	if err := loadDotEnv(); err != nil {
		return Config{}, err
	}
	return Load(FromEnviron())
}
