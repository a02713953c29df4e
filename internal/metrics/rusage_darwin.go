//go:build darwin

package metrics

// macOSのru_maxrssはバイト単位
const maxrssUnit = 1
