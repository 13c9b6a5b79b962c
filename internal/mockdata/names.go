package mockdata

var firstNames = []string{
	"John", "Jane", "Michael", "Emily", "David", "Sarah", "Chris", "Amanda",
	"Robert", "Jessica", "William", "Ashley", "James", "Melissa", "Daniel",
	"Nicole", "Matthew", "Stephanie", "Andrew", "Jennifer", "Joshua", "Elizabeth",
	"Ryan", "Lauren", "Brandon", "Samantha", "Tyler", "Megan", "Kevin", "Rachel",
}

var lastNames = []string{
	"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis",
	"Rodriguez", "Martinez", "Hernandez", "Lopez", "Gonzalez", "Wilson", "Anderson",
	"Thomas", "Taylor", "Moore", "Jackson", "Martin", "Lee", "Perez", "Thompson",
	"White", "Harris", "Sanchez", "Clark", "Ramirez", "Lewis", "Robinson",
}

var productNames = []string{
	"Wireless Headphones", "USB-C Cable", "Phone Case", "Screen Protector",
	"Bluetooth Speaker", "Power Bank", "Laptop Stand", "Mechanical Keyboard",
	"Gaming Mouse", "Webcam HD", "Monitor Arm", "Desk Mat", "LED Strip Lights",
	"Smart Watch", "Fitness Tracker", "Portable SSD", "Memory Card", "Tripod",
	"Ring Light", "Microphone", "Noise Canceling Earbuds", "Tablet Stand",
	"Wireless Charger", "HDMI Cable", "USB Hub", "External Hard Drive",
}

var streets = []string{
	"Main Street", "Oak Avenue", "Maple Drive", "Cedar Lane", "Pine Road",
	"Elm Street", "Washington Boulevard", "Park Avenue", "Lake Drive", "Hill Road",
	"River Street", "Forest Lane", "Sunset Boulevard", "Broadway", "Market Street",
}

var cities = []string{
	"New York", "Los Angeles", "Chicago", "Houston", "Phoenix", "Philadelphia",
	"San Antonio", "San Diego", "Dallas", "San Jose", "Austin", "Jacksonville",
	"Fort Worth", "Columbus", "Charlotte", "Seattle", "Denver", "Boston",
	"Portland", "Miami", "Atlanta", "Minneapolis", "Detroit", "San Francisco",
}

var (
	countries    = []string{"USA", "Canada", "UK", "Germany", "France", "Australia"}
	currencies   = []string{"USD", "EUR", "GBP", "CAD", "AUD"}
	emailDomains = []string{"gmail.com", "yahoo.com", "outlook.com", "example.com", "mail.com"}
)
