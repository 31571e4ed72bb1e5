package packfile

import (
	"os"

	"margin_bot/internal/models"
	"margin_bot/pkg/sealbox"

	"github.com/pkg/errors"
)

// Read читает пакет ботов. Запечатанный файл расшифровывается паролем,
// незапечатанный yaml принимается как есть.
func Read(path, password string) (models.Package, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "read package")
	}
	if sealbox.IsSealed(data) {
		data, err = sealbox.Open(data, password)
		if err != nil {
			return nil, errors.Wrapf(err, "open package %s", path)
		}
	}
	pkg, err := models.DecodePackage(data)
	if err != nil {
		return nil, errors.Wrapf(err, "package %s", path)
	}
	return pkg, nil
}

// Write сохраняет пакет; с пустым паролем: открытым yaml.
func Write(path string, pkg models.Package, password string) error {
	data, err := pkg.Encode()
	if err != nil {
		return errors.Wrap(err, "encode package")
	}
	if password != "" {
		data, err = sealbox.Seal(data, password)
		if err != nil {
			return errors.Wrap(err, "seal package")
		}
	}
	return errors.Wrap(os.WriteFile(path, data, 0o600), "write package")
}
