package cache

import "fmt"

// Key joins a prefix and parameters into a colon separated cache key.
func Key(prefix string, params ...interface{}) string {
	key := prefix
	for _, param := range params {
		key = fmt.Sprintf("%s:%v", key, param)
	}
	return key
}

// Pattern matches every key under prefix.
func Pattern(prefix string, params ...interface{}) string {
	return Key(prefix, params...) + ":*"
}
