package models

// JSONMap represents an arbitrary JSON object
type JSONMap map[string]interface{}
