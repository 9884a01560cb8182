package utils

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
)

type envValue interface {
	string | int | bool | float64 | []string
}

// GetEnv reads an environment variable and converts it to the type of the default value.
// An unset or empty variable yields the default; a value that cannot be converted panics,
// since a misconfigured server must not start.
func GetEnv[T envValue](envVarName string, defaultValue T) T {
	raw, ok := os.LookupEnv(envVarName)
	if !ok || raw == "" {
		return defaultValue
	}
	value, err := parseEnvValue[T](raw)
	if err != nil {
		panic(fmt.Sprintf("Environment variable %s is not valid: %s", envVarName, err))
	}
	return value
}

func GetRequiredEnv[T envValue](envVarName string) T {
	raw, ok := os.LookupEnv(envVarName)
	if !ok || raw == "" {
		log.Fatalf("%s environment variable is required", envVarName)
	}
	value, err := parseEnvValue[T](raw)
	if err != nil {
		log.Fatalf("%s environment variable is not valid: %s", envVarName, err)
	}
	return value
}

func parseEnvValue[T envValue](raw string) (T, error) {
	var out T
	switch target := any(&out).(type) {
	case *string:
		*target = raw
	case *int:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return out, fmt.Errorf("'%s' is not an integer", raw)
		}
		*target = v
	case *bool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return out, fmt.Errorf("'%s' cannot be converted to bool", raw)
		}
		*target = v
	case *float64:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return out, fmt.Errorf("'%s' is not a number", raw)
		}
		*target = v
	case *[]string:
		parts := strings.Split(raw, ",")
		values := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				values = append(values, p)
			}
		}
		*target = values
	}
	return out, nil
}
