package repository

import (
	"github.com/inktoons/inktoons/app/models"
	"gorm.io/gorm"
)

// missionRepository implements the MissionRepository interface
type missionRepository struct {
	db *gorm.DB
}

// NewMissionRepository creates a new mission repository instance
func NewMissionRepository(db *gorm.DB) MissionRepository {
	return &missionRepository{db: db}
}

// GetSetForUser retrieves the user's current mission working set
func (r *missionRepository) GetSetForUser(userID uint) ([]models.MissionInstance, error) {
	var set []models.MissionInstance
	err := r.db.Where("user_id = ?", userID).Order("id ASC").Find(&set).Error
	return set, err
}

// ReplaceSetForUser atomically swaps the user's mission set for a new one
func (r *missionRepository) ReplaceSetForUser(userID uint, set []models.MissionInstance) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", userID).Delete(&models.MissionInstance{}).Error; err != nil {
			return err
		}
		if len(set) == 0 {
			return nil
		}
		for i := range set {
			set[i].UserID = userID
		}
		return tx.Create(&set).Error
	})
}

// GetByID retrieves one mission instance
func (r *missionRepository) GetByID(id uint) (*models.MissionInstance, error) {
	var instance models.MissionInstance
	err := r.db.First(&instance, id).Error
	if err != nil {
		return nil, err
	}
	return &instance, nil
}

// Save writes one mission instance back
func (r *missionRepository) Save(instance *models.MissionInstance) error {
	return r.db.Save(instance).Error
}

// SaveAll writes a batch of mission instances back
func (r *missionRepository) SaveAll(instances []models.MissionInstance) error {
	if len(instances) == 0 {
		return nil
	}
	return r.db.Save(&instances).Error
}
