package inference

import "fmt"

// CheckInputShape accepts a single-image NHWC batch of size x size RGB pixels
func CheckInputShape(dims []int, size int) error {
	want := []int{1, size, size, 3}
	if len(dims) != len(want) {
		return fmt.Errorf("model input must have %d dimensions, got %d", len(want), len(dims))
	}
	for i, d := range want {
		if dims[i] != d {
			return fmt.Errorf("model input dimension %d is %d, expected %d", i, dims[i], d)
		}
	}
	return nil
}

// CheckOutputShape requires the last output dimension to hold one score per class
func CheckOutputShape(dims []int, classes int) error {
	if len(dims) == 0 {
		return fmt.Errorf("model output is a scalar, expected %d classes", classes)
	}
	if n := dims[len(dims)-1]; n != classes {
		return fmt.Errorf("model predicts %d classes, expected %d", n, classes)
	}
	return nil
}
