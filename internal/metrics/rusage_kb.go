//go:build unix && !darwin

package metrics

// Linux/BSDのru_maxrssはKiB単位
const maxrssUnit = 1024
