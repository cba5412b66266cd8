package reconcile

import (
	"context"

	"github.com/ferrumhealth/assetsync/pkg/errors"
	"github.com/ferrumhealth/assetsync/pkg/inventory"
	"github.com/ferrumhealth/assetsync/pkg/logging"
)

// Resolve binds a normalized candidate to an existing asset through the
// fixed lookup cascade: serial, then asset tag, then each MAC address, then
// name. The first step that yields exactly one record wins. A step that
// yields more than one record aborts resolution for the whole candidate —
// the engine never guesses among ambiguous matches. A nil asset with a nil
// error means no record matched and the candidate is new.
func Resolve(ctx context.Context, s *inventory.Session, c Candidate) (*inventory.Asset, error) {
	log := logging.Ctx(ctx)

	if c.Serial != "" {
		asset, err := inventory.FindAssetBySerial(ctx, s, c.Serial)
		if err != nil {
			return nil, cascadeErr(ctx, "serial", c.Serial, err)
		}
		if asset != nil {
			log.Debug().Str("serial", c.Serial).Int("asset_id", asset.ID).Msg("Resolved by serial")
			return asset, nil
		}
	}

	if c.AssetTag != "" {
		asset, err := inventory.FindAssetByTag(ctx, s, c.AssetTag)
		if err != nil {
			return nil, cascadeErr(ctx, "asset_tag", c.AssetTag, err)
		}
		if asset != nil {
			log.Debug().Str("asset_tag", c.AssetTag).Int("asset_id", asset.ID).Msg("Resolved by asset tag")
			return asset, nil
		}
	}

	for _, mac := range c.MACAddresses {
		asset, err := inventory.FindAssetByMAC(ctx, s, mac)
		if err != nil {
			return nil, cascadeErr(ctx, "mac", mac, err)
		}
		if asset != nil {
			log.Debug().Str("mac", mac).Int("asset_id", asset.ID).Msg("Resolved by MAC address")
			return asset, nil
		}
	}

	if c.Name != "" {
		asset, err := inventory.FindAssetByName(ctx, s, c.Name)
		if err != nil {
			return nil, cascadeErr(ctx, "name", c.Name, err)
		}
		if asset != nil {
			log.Debug().Str("name", c.Name).Int("asset_id", asset.ID).Msg("Resolved by name")
			return asset, nil
		}
	}

	log.Debug().Str("serial", c.Serial).Str("name", c.Name).Msg("No existing record, candidate is new")
	return nil, nil
}

// cascadeErr reports a failed cascade step. Ambiguous matches get a
// collision log entry before propagating; everything else passes through.
func cascadeErr(ctx context.Context, attribute, value string, err error) error {
	if errors.IsAmbiguous(err) {
		logging.Ctx(ctx).Warn().
			Str("attribute", attribute).
			Str("value", value).
			Err(err).
			Msg("Identity collision, abandoning candidate")
	}
	return err
}
