package helper

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knights-analytics/hugot"
)

// ModelDir is where local embedding models are downloaded to.
var ModelDir = "./models"

// PrepareModel downloads the ONNX export of modelName unless it is already
// present and returns the local model path. The optional onnxFilePath selects
// the ONNX file inside the model repository.
func PrepareModel(modelName string, onnxFilePath ...string) (string, error) {
	modelPath := filepath.Join(ModelDir, strings.ReplaceAll(modelName, "/", "_"))

	if _, err := os.Stat(modelPath); err == nil {
		return modelPath, nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to stat model directory: %w", err)
	}

	if err := os.MkdirAll(ModelDir, 0750); err != nil {
		return "", fmt.Errorf("failed to create model directory: %w", err)
	}

	downloadOptions := hugot.NewDownloadOptions()
	if len(onnxFilePath) > 0 && onnxFilePath[0] != "" {
		downloadOptions.OnnxFilePath = onnxFilePath[0]
	}
	downloadedPath, err := hugot.DownloadModel(modelName, ModelDir, downloadOptions)
	if err != nil {
		return "", fmt.Errorf("failed to download model: %w", err)
	}

	return downloadedPath, nil
}
