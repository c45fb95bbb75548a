package service

import (
	"fmt"
	"strings"

	"github.com/iliyamo/smart-parking/internal/model"
)

const signature = "- Team Smart Parking"

// BookingMessage is the SMS body for a standard booking code.
func BookingMessage(code string) string {
	return fmt.Sprintf("Your Smart Parking OTP is: %s\n\nYou're almost there!\n\n%s", code, signature)
}

// ReleaseMessage is the SMS body for a release code.
func ReleaseMessage(code string) string {
	return fmt.Sprintf("Your release OTP is: %s\n\nThanks for making space!\n\n%s", code, signature)
}

// EnhancedBookingMessage adds the device trust outcome to the booking SMS.
func EnhancedBookingMessage(code string, verdict model.TrustVerdict, risk model.RiskAssessment, block, slot string) string {
	trust := "Verified device"
	if !verdict.Trusted {
		trust = "Unrecognized device"
	}
	return fmt.Sprintf("Your Smart Parking OTP: %s\n\n%s\nDevice Trust: %.2f%%\nSecurity Level: %s\n\nBlock: %s | Slot: %s\n\n%s",
		code, trust, verdict.Confidence, risk.Level, strings.ToUpper(block), slot, signature)
}

// PriorityMessage is the SMS body for a staff priority booking code.
func PriorityMessage(code string, staff model.StaffIdentity, block, slot string) string {
	return fmt.Sprintf("HOSPITAL PRIORITY BOOKING\n\nHello %s (%s)\n\nYour priority booking OTP: %s\n\nBlock: %s\nSlot: %s\nPriority Level: %d\n\n%s",
		staff.Name, staff.Department, code, strings.ToUpper(block), slot, staff.PriorityLevel, signature)
}
